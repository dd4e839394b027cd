// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/eduaccess-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotFound возвращается, если запрошенная сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict возвращается, если документ изменился между чтением и записью.
	// Операцию следует повторить по свежему снимку.
	ErrVersionConflict = errors.New("stale write: document changed, please retry")
	// ErrGroupNotActive возвращается при записи занятия для группы не в статусе active.
	ErrGroupNotActive = errors.New("group is not active")
	// ErrSessionExists возвращается при повторной записи занятия с тем же номером.
	ErrSessionExists = errors.New("attendance session already recorded")
	// ErrCurriculumExists возвращается при попытке создать программу с существующим идентификатором.
	ErrCurriculumExists = errors.New("curriculum already exists")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Конфликт версий не ретраится здесь: его разрешает вызывающий,
		// перечитав свежий снимок документа.
		if errors.Is(err, ErrVersionConflict) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// CreateCurriculum сохраняет учебную программу вместе с уровнями и планами.
func (r *PostgresRepository) CreateCurriculum(ctx context.Context, cur *model.Curriculum) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO curricula (id, title) VALUES ($1, $2)`,
			cur.ID, cur.Title,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: %s", ErrCurriculumExists, cur.ID)
			}
			return fmt.Errorf("insert curriculum: %w", err)
		}

		for _, l := range cur.Levels {
			_, err = tx.Exec(ctx,
				`INSERT INTO levels (curriculum_id, ord, title, duration_days, sessions_count)
				 VALUES ($1, $2, $3, $4, $5)`,
				cur.ID, l.Order, l.Title, l.DurationDays, l.SessionsCount,
			)
			if err != nil {
				return fmt.Errorf("insert level: %w", err)
			}
		}

		for _, p := range cur.Plans {
			_, err = tx.Exec(ctx,
				`INSERT INTO plans (curriculum_id, plan_type, price_cents) VALUES ($1, $2, $3)`,
				cur.ID, string(p.Type), p.PriceCents,
			)
			if err != nil {
				return fmt.Errorf("insert plan: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// GetCurriculum возвращает учебную программу с уровнями в порядке возрастания.
func (r *PostgresRepository) GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error) {
	var cur model.Curriculum
	err := r.pool.QueryRow(ctx,
		`SELECT id, title FROM curricula WHERE id = $1`,
		id,
	).Scan(&cur.ID, &cur.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: curriculum %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get curriculum: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ord, title, duration_days, sessions_count
		 FROM levels
		 WHERE curriculum_id = $1
		 ORDER BY ord`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.Level
		if err := rows.Scan(&l.Order, &l.Title, &l.DurationDays, &l.SessionsCount); err != nil {
			return nil, fmt.Errorf("scan level: %w", err)
		}
		cur.Levels = append(cur.Levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	planRows, err := r.pool.Query(ctx,
		`SELECT plan_type, price_cents FROM plans WHERE curriculum_id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select plans: %w", err)
	}
	defer planRows.Close()

	for planRows.Next() {
		var (
			planType string
			price    int64
		)
		if err := planRows.Scan(&planType, &price); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		cur.Plans = append(cur.Plans, model.SubscriptionPlan{
			Type:       model.PlanType(planType),
			PriceCents: price,
		})
	}
	if err := planRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &cur, nil
}

// CreateSubscription сохраняет новую подписку и первую запись истории кредита
// одной транзакцией.
func (r *PostgresRepository) CreateSubscription(ctx context.Context, sub *model.Subscription, rec *model.CreditHistoryRecord) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO subscriptions
			   (id, student_id, curriculum_id, status, credit_days, current_level,
			    level_expires_at, completed_levels, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $9)`,
			sub.ID, sub.StudentID, sub.CurriculumID, string(sub.Status),
			sub.CreditDays, sub.CurrentLevel, sub.LevelExpiresAt,
			toInt64s(sub.CompletedLevels), sub.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}

		if rec != nil {
			if err := insertHistory(ctx, tx, rec); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// GetSubscription возвращает подписку по идентификатору вместе с версией документа.
func (r *PostgresRepository) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, student_id, curriculum_id, status, credit_days, current_level,
		        level_expires_at, completed_levels, expired_seen_at, version, created_at, updated_at
		 FROM subscriptions
		 WHERE id = $1`,
		id,
	)

	var (
		sub       model.Subscription
		status    string
		completed []int64
	)
	err := row.Scan(&sub.ID, &sub.StudentID, &sub.CurriculumID, &status,
		&sub.CreditDays, &sub.CurrentLevel, &sub.LevelExpiresAt, &completed,
		&sub.ExpiredSeenAt, &sub.Version, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: subscription %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	sub.Status = model.SubscriptionStatus(status)
	sub.CompletedLevels = toInts(completed)
	return &sub, nil
}

// UpdateSubscription записывает новое состояние подписки по правилу
// compare-and-swap: запись проходит, только если версия документа не менялась
// с момента чтения. Изменение баланса и запись истории фиксируются одной
// транзакцией; при конфликте версий ничего не записывается.
func (r *PostgresRepository) UpdateSubscription(ctx context.Context, sub *model.Subscription, expectedVersion int64, rec *model.CreditHistoryRecord) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		cmdTag, err := tx.Exec(ctx,
			`UPDATE subscriptions
			 SET status = $3, credit_days = $4, current_level = $5,
			     level_expires_at = $6, completed_levels = $7, expired_seen_at = $8,
			     version = version + 1, updated_at = $9
			 WHERE id = $1 AND version = $2`,
			sub.ID, expectedVersion, string(sub.Status), sub.CreditDays,
			sub.CurrentLevel, sub.LevelExpiresAt, toInt64s(sub.CompletedLevels),
			sub.ExpiredSeenAt, sub.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}

		if cmdTag.RowsAffected() == 0 {
			var exists bool
			err = tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1)`,
				sub.ID,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check subscription: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: subscription %s", ErrNotFound, sub.ID)
			}
			return ErrVersionConflict
		}

		if rec != nil {
			if err := insertHistory(ctx, tx, rec); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

func insertHistory(ctx context.Context, tx pgx.Tx, rec *model.CreditHistoryRecord) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO credit_history
		   (id, subscription_id, old_credit, new_credit, added_days, reason, is_promotion, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.SubscriptionID, rec.OldCredit, rec.NewCredit, rec.AddedDays,
		rec.Reason, rec.IsPromotion, rec.ActorID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// GetCreditHistory возвращает историю изменений баланса подписки от старых к новым.
func (r *PostgresRepository) GetCreditHistory(ctx context.Context, subscriptionID string) ([]model.CreditHistoryRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subscription_id, old_credit, new_credit, added_days, reason, is_promotion, actor_id, created_at
		 FROM credit_history
		 WHERE subscription_id = $1
		 ORDER BY created_at, id`,
		subscriptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var res []model.CreditHistoryRecord
	for rows.Next() {
		var rec model.CreditHistoryRecord
		if err := rows.Scan(&rec.ID, &rec.SubscriptionID, &rec.OldCredit, &rec.NewCredit,
			&rec.AddedDays, &rec.Reason, &rec.IsPromotion, &rec.ActorID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateGroup сохраняет новую учебную группу.
func (r *PostgresRepository) CreateGroup(ctx context.Context, g *model.CurriculumGroup) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO groups
		   (id, curriculum_id, status, min_size, max_size, trainer_id, students, current_level, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)`,
		g.ID, g.CurriculumID, string(g.Status), g.MinSize, g.MaxSize,
		nullableText(g.TrainerID), g.Students, g.CurrentLevel, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// GetGroup возвращает группу по идентификатору вместе с версией документа.
func (r *PostgresRepository) GetGroup(ctx context.Context, id string) (*model.CurriculumGroup, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, curriculum_id, status, min_size, max_size, trainer_id, students, current_level, version, created_at
		 FROM groups
		 WHERE id = $1`,
		id,
	)

	g, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: group %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// GetGroupByStudent возвращает группу указанной программы, в которой состоит студент.
func (r *PostgresRepository) GetGroupByStudent(ctx context.Context, studentID, curriculumID string) (*model.CurriculumGroup, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, curriculum_id, status, min_size, max_size, trainer_id, students, current_level, version, created_at
		 FROM groups
		 WHERE curriculum_id = $1 AND $2 = ANY(students)
		 ORDER BY created_at
		 LIMIT 1`,
		curriculumID, studentID,
	)

	g, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: group for student %s", ErrNotFound, studentID)
		}
		return nil, fmt.Errorf("get group by student: %w", err)
	}
	return g, nil
}

func scanGroup(row pgx.Row) (*model.CurriculumGroup, error) {
	var (
		g         model.CurriculumGroup
		status    string
		trainerID *string
	)
	err := row.Scan(&g.ID, &g.CurriculumID, &status, &g.MinSize, &g.MaxSize,
		&trainerID, &g.Students, &g.CurrentLevel, &g.Version, &g.CreatedAt)
	if err != nil {
		return nil, err
	}

	g.Status = model.GroupStatus(status)
	if trainerID != nil {
		g.TrainerID = *trainerID
	}
	if g.Students == nil {
		g.Students = []string{}
	}
	return &g, nil
}

// UpdateGroup записывает новое состояние группы по правилу compare-and-swap.
func (r *PostgresRepository) UpdateGroup(ctx context.Context, g *model.CurriculumGroup, expectedVersion int64) error {
	return r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE groups
			 SET status = $3, min_size = $4, max_size = $5, trainer_id = $6,
			     students = $7, current_level = $8, version = version + 1
			 WHERE id = $1 AND version = $2`,
			g.ID, expectedVersion, string(g.Status), g.MinSize, g.MaxSize,
			nullableText(g.TrainerID), g.Students, g.CurrentLevel,
		)
		if err != nil {
			return fmt.Errorf("update group: %w", err)
		}

		if cmdTag.RowsAffected() == 0 {
			var exists bool
			err = r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)`,
				g.ID,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check group: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: group %s", ErrNotFound, g.ID)
			}
			return ErrVersionConflict
		}
		return nil
	})
}

// CreateAttendanceSession фиксирует занятие группы. Запись принимается только
// для группы в статусе active; статус перечитывается внутри транзакции.
func (r *PostgresRepository) CreateAttendanceSession(ctx context.Context, s *model.AttendanceSession) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var status string
		err = tx.QueryRow(ctx,
			`SELECT status FROM groups WHERE id = $1 FOR SHARE`,
			s.GroupID,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: group %s", ErrNotFound, s.GroupID)
			}
			return fmt.Errorf("check group status: %w", err)
		}
		if model.GroupStatus(status) != model.GroupActive {
			return ErrGroupNotActive
		}

		marks, err := json.Marshal(s.Attendance)
		if err != nil {
			return fmt.Errorf("marshal attendance: %w", err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO attendance_sessions (group_id, level, session_number, attendance, recorded_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			s.GroupID, s.Level, s.SessionNumber, marks, s.RecordedBy, s.CreatedAt,
		).Scan(&s.ID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrSessionExists
			}
			return fmt.Errorf("insert attendance session: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// GetAttendanceSessions возвращает занятия группы в порядке записи.
func (r *PostgresRepository) GetAttendanceSessions(ctx context.Context, groupID string) ([]model.AttendanceSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, group_id, level, session_number, attendance, recorded_by, created_at
		 FROM attendance_sessions
		 WHERE group_id = $1
		 ORDER BY level, session_number`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("select attendance sessions: %w", err)
	}
	defer rows.Close()

	var res []model.AttendanceSession
	for rows.Next() {
		var (
			s     model.AttendanceSession
			marks []byte
		)
		if err := rows.Scan(&s.ID, &s.GroupID, &s.Level, &s.SessionNumber,
			&marks, &s.RecordedBy, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance session: %w", err)
		}
		if err := json.Unmarshal(marks, &s.Attendance); err != nil {
			return nil, fmt.Errorf("unmarshal attendance: %w", err)
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ExpiredSubscription описывает активную подписку с истёкшим доступом к уровню.
type ExpiredSubscription struct {
	ID        string
	StudentID string
}

// GetExpiryCandidates возвращает активные подписки, у которых доступ к уровню
// истёк, но истечение ещё не отмечено.
func (r *PostgresRepository) GetExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]ExpiredSubscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id
		 FROM subscriptions
		 WHERE status = $1 AND level_expires_at < $2 AND expired_seen_at IS NULL
		 ORDER BY level_expires_at
		 LIMIT $3`,
		string(model.SubscriptionActive), now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select expiry candidates: %w", err)
	}
	defer rows.Close()

	var res []ExpiredSubscription
	for rows.Next() {
		var e ExpiredSubscription
		if err := rows.Scan(&e.ID, &e.StudentID); err != nil {
			return nil, fmt.Errorf("scan expiry candidate: %w", err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkExpirySeen отмечает, что истечение доступа по подписке зафиксировано.
// Отметка идемпотентна и не меняет версию документа: статус подписки и баланс
// остаются нетронутыми, истечение — производный признак.
func (r *PostgresRepository) MarkExpirySeen(ctx context.Context, subscriptionID string, now time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET expired_seen_at = $2
		 WHERE id = $1 AND expired_seen_at IS NULL`,
		subscriptionID, now,
	)
	if err != nil {
		return fmt.Errorf("mark expiry seen: %w", err)
	}
	return nil
}

func toInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func toInts(in []int64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
