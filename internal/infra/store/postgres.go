package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = `id, user_id, channel, status, priority, title, content, data,
	template_id, external_id, recipient, error_message, retry_count,
	scheduled_at, sent_at, delivered_at, opened_at, clicked_at, created_at, updated_at`

var _ notification.NotificationStore = (*PostgresStore)(nil)

// PostgresStore implements NotificationStore on Postgres via pgx. Status
// transitions are single conditional UPDATEs, so concurrent callers racing
// on the same id serialize on the row and exactly one wins.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new Postgres-backed notification store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Create inserts a new notification record.
func (s *PostgresStore) Create(ctx context.Context, n *notification.Notification) error {
	var data []byte
	if n.Data != nil {
		var err error
		data, err = json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("marshaling notification data: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (
			id, user_id, channel, status, priority, title, content, data,
			template_id, recipient, retry_count, scheduled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		n.ID, n.UserID, string(n.Channel), string(n.Status), string(n.Priority),
		n.Title, n.Content, data, nullable(n.TemplateID), n.Recipient,
		n.RetryCount, n.ScheduledAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by its id. Returns nil, nil if absent.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	return scanOne(row)
}

// GetByExternalID retrieves a notification by its provider message id.
func (s *PostgresStore) GetByExternalID(ctx context.Context, externalID string) (*notification.Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE external_id = $1`, externalID)
	return scanOne(row)
}

// ApplyTransition atomically moves a record to the target status if its
// current status is in from. The status timestamp columns are only written
// while null, so sent_at/delivered_at/opened_at/clicked_at are set once.
func (s *PostgresStore) ApplyTransition(ctx context.Context, id string, from []notification.Status, to notification.Status, change notification.TransitionChange) (*notification.Notification, error) {
	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE notifications SET
			status       = $2,
			external_id  = COALESCE(NULLIF($3, ''), external_id),
			error_message = CASE WHEN $4::text IS NULL THEN error_message ELSE NULLIF($4, '') END,
			sent_at      = CASE WHEN $2 = 'sent'      AND sent_at      IS NULL THEN $5 ELSE sent_at      END,
			delivered_at = CASE WHEN $2 = 'delivered' AND delivered_at IS NULL THEN $5 ELSE delivered_at END,
			opened_at    = CASE WHEN $2 = 'opened'    AND opened_at    IS NULL THEN $5 ELSE opened_at    END,
			clicked_at   = CASE WHEN $2 = 'clicked'   AND clicked_at   IS NULL THEN $5 ELSE clicked_at   END,
			updated_at   = now()
		WHERE id = $1 AND status = ANY($6)
		RETURNING `+notificationColumns,
		id, string(to), change.ExternalID, change.ErrorMessage, at, statusStrings(from),
	)

	n, err := scanOne(row)
	if err != nil {
		return nil, err
	}
	if n != nil {
		return n, nil
	}

	// No row matched: distinguish an unknown id from a lost race.
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, common.NewNotFoundError("notification", id)
	}
	return nil, common.NewInvalidTransitionError(id, string(current.Status), string(to))
}

// IncrementRetry atomically bumps retry_count and returns the new value.
func (s *PostgresStore) IncrementRetry(ctx context.Context, id string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		UPDATE notifications
		SET retry_count = retry_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING retry_count`, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, common.NewNotFoundError("notification", id)
	}
	if err != nil {
		return 0, fmt.Errorf("incrementing retry count: %w", err)
	}
	return count, nil
}

// List retrieves notifications ordered by created_at descending, id as
// tie-break, so pagination is stable.
func (s *PostgresStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, int, error) {
	filter.Normalize()

	where := make([]string, 0, 5)
	args := make([]any, 0, 7)

	addArg := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.UserID != "" {
		addArg("user_id = $%d", filter.UserID)
	}
	if filter.Channel != "" {
		addArg("channel = $%d", filter.Channel)
	}
	if filter.Status != "" {
		addArg("status = $%d", filter.Status)
	}
	if filter.From != nil {
		addArg("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		addArg("created_at <= $%d", *filter.To)
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM notifications`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := `SELECT ` + notificationColumns + ` FROM notifications` + cond +
		` ORDER BY created_at DESC, id DESC` +
		` LIMIT ` + strconv.Itoa(filter.PageSize) + ` OFFSET ` + strconv.Itoa(offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	items, err := scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListStale retrieves pending records not touched since olderThan.
func (s *PostgresStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3`,
		string(notification.StatusPending), olderThan, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing stale notifications: %w", err)
	}
	defer rows.Close()

	return scanAll(rows)
}

// CountByStatus returns aggregate counts per status.
func (s *PostgresStore) CountByStatus(ctx context.Context) (map[notification.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM notifications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[notification.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[notification.Status(status)] = count
	}
	return counts, rows.Err()
}

// scanOne scans a single notification row, mapping no-rows to nil, nil.
func scanOne(row pgx.Row) (*notification.Notification, error) {
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning notification: %w", err)
	}
	return n, nil
}

func scanAll(rows pgx.Rows) ([]*notification.Notification, error) {
	items := make([]*notification.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	var channel, status, priority string
	var data []byte
	var templateID, externalID, errorMessage *string

	err := row.Scan(
		&n.ID, &n.UserID, &channel, &status, &priority, &n.Title, &n.Content, &data,
		&templateID, &externalID, &n.Recipient, &errorMessage, &n.RetryCount,
		&n.ScheduledAt, &n.SentAt, &n.DeliveredAt, &n.OpenedAt, &n.ClickedAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Channel = notification.Channel(channel)
	n.Status = notification.Status(status)
	n.Priority = notification.Priority(priority)

	if templateID != nil {
		n.TemplateID = *templateID
	}
	if externalID != nil {
		n.ExternalID = *externalID
	}
	if errorMessage != nil {
		n.ErrorMessage = *errorMessage
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("unmarshaling notification data: %w", err)
		}
	}

	return &n, nil
}

func statusStrings(statuses []notification.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
