package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"utes-backend/internal/apperr"
	"utes-backend/internal/models"
)

type ResultRepo struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

const resultColumns = `id, user_id, video_id, video_title, video_url, quiz_mode,
	score, total_questions, questions, user_answers, essay_scores, essay_feedbacks, created_at`

func (r *ResultRepo) Create(ctx context.Context, userID uuid.UUID, req *models.SaveResultRequest) (*models.QuizResult, error) {
	query := fmt.Sprintf(`INSERT INTO quiz_results
		(id, user_id, video_id, video_title, video_url, quiz_mode, score, total_questions, questions, user_answers, essay_scores, essay_feedbacks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s`, resultColumns)

	res, err := scanResult(r.pool.QueryRow(ctx, query,
		uuid.New(), userID, req.VideoID, req.VideoTitle, req.VideoURL,
		req.QuizMode, req.Score, req.TotalQuestions, req.Questions,
		req.UserAnswers, req.EssayScores, req.EssayFeedbacks,
	))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return res, nil
}

// LatestByKey returns the most recent attempt for a (video, mode) pair,
// or nil when the user has never completed one.
func (r *ResultRepo) LatestByKey(ctx context.Context, userID uuid.UUID, videoID, quizMode string) (*models.QuizResult, error) {
	query := fmt.Sprintf(`SELECT %s FROM quiz_results
		WHERE user_id = $1 AND video_id = $2 AND quiz_mode = $3
		ORDER BY created_at DESC LIMIT 1`, resultColumns)

	res, err := scanResult(r.pool.QueryRow(ctx, query, userID, videoID, quizMode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return res, nil
}

// modeAggregate is one mode's slice of the completion rollup.
type modeAggregate struct {
	QuizMode string
	Best     int
	Attempts int
}

// CompletionStatus aggregates every attempt for a video into per-mode
// best score and attempt count. A video with zero attempts yields the
// all-false zero value, never an error.
func (r *ResultRepo) CompletionStatus(ctx context.Context, userID uuid.UUID, videoID string) (*models.VideoCompletionStatus, error) {
	query := `SELECT quiz_mode, MAX(score), COUNT(*) FROM quiz_results
		WHERE user_id = $1 AND video_id = $2
		GROUP BY quiz_mode`

	rows, err := r.pool.Query(ctx, query, userID, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	defer rows.Close()

	var aggregates []modeAggregate
	for rows.Next() {
		var a modeAggregate
		if err := rows.Scan(&a.QuizMode, &a.Best, &a.Attempts); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
		}
		aggregates = append(aggregates, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return buildCompletionStatus(aggregates), nil
}

func buildCompletionStatus(aggregates []modeAggregate) *models.VideoCompletionStatus {
	status := &models.VideoCompletionStatus{}
	for _, a := range aggregates {
		best := a.Best
		switch a.QuizMode {
		case models.QuizModeNob:
			status.HasNobQuiz = true
			status.NobScore = &best
			status.NobAttempts = a.Attempts
		case models.QuizModeLegend:
			status.HasLegendQuiz = true
			status.LegendScore = &best
			status.LegendAttempts = a.Attempts
		}
	}
	return status
}

func scanResult(row pgx.Row) (*models.QuizResult, error) {
	res := &models.QuizResult{}
	err := row.Scan(
		&res.ID, &res.UserID, &res.VideoID, &res.VideoTitle, &res.VideoURL,
		&res.QuizMode, &res.Score, &res.TotalQuestions, &res.Questions,
		&res.UserAnswers, &res.EssayScores, &res.EssayFeedbacks, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}
