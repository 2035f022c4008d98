package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"utes-backend/internal/apperr"
	"utes-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, video_id, video_title, video_url, video_thumbnail,
	video_channel, video_duration, quiz_mode, questions, transcript_text, created_at, updated_at`

// Upsert inserts a session or, when one already exists for the same
// (user, video, mode), overwrites its questions and transcript in place.
// The unique index makes two racing generations collapse to one row.
// isNew reports whether the row was inserted rather than updated.
func (r *SessionRepo) Upsert(ctx context.Context, userID uuid.UUID, req *models.SaveSessionRequest) (uuid.UUID, bool, error) {
	questions := req.Questions
	if questions == nil {
		questions = json.RawMessage("[]")
	}

	query := `INSERT INTO quiz_sessions
		(id, user_id, video_id, video_title, video_url, video_thumbnail, video_channel, video_duration, quiz_mode, questions, transcript_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, video_id, quiz_mode) DO UPDATE SET
			questions = EXCLUDED.questions,
			transcript_text = EXCLUDED.transcript_text,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted`

	var id uuid.UUID
	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		uuid.New(), userID, req.VideoID, req.VideoTitle, req.VideoURL,
		req.VideoThumbnail, req.VideoChannel, req.VideoDuration,
		req.QuizMode, questions, req.TranscriptText,
	).Scan(&id, &inserted)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return id, inserted, nil
}

func (r *SessionRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.QuizSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM quiz_sessions WHERE id = $1 AND user_id = $2`, sessionColumns)

	s, err := scanSession(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return s, nil
}

func (r *SessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.QuizSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM quiz_sessions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, sessionColumns)

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	defer rows.Close()

	var sessions []*models.QuizSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*models.QuizSession, error) {
	s := &models.QuizSession{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.VideoID, &s.VideoTitle, &s.VideoURL, &s.VideoThumbnail,
		&s.VideoChannel, &s.VideoDuration, &s.QuizMode, &s.Questions, &s.TranscriptText,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
