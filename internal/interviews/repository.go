package interviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-interview/backend/internal/models"
)

// Repository is the PostgreSQL Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an interview repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an interview together with any turns it already carries.
func (r *Repository) Create(ctx context.Context, iv *models.Interview) error {
	candidate, err := json.Marshal(iv.Candidate)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO interviews (id, candidate, persona, status, start_time, end_time, final_score, recommendations, admin_intervention)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING updated_at`
	recs, _ := json.Marshal(nonNil(iv.Recommendations))
	if err := tx.QueryRow(ctx, q, iv.ID, candidate, iv.Persona, iv.Status, iv.StartTime, iv.EndTime, iv.FinalScore, recs, iv.AdminIntervention).Scan(&iv.UpdatedAt); err != nil {
		return err
	}
	for _, t := range iv.Conversation {
		if err := insertTurn(ctx, tx, iv.ID, t); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Get loads an interview with its conversation and scores.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	const q = `SELECT id, candidate, persona, status, start_time, end_time, final_score, recommendations, admin_intervention, updated_at
		FROM interviews WHERE id = $1`
	var (
		iv        models.Interview
		candidate []byte
		recs      []byte
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(&iv.ID, &candidate, &iv.Persona, &iv.Status, &iv.StartTime, &iv.EndTime, &iv.FinalScore, &recs, &iv.AdminIntervention, &iv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(candidate, &iv.Candidate); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	if len(recs) > 0 {
		if err := json.Unmarshal(recs, &iv.Recommendations); err != nil {
			return nil, fmt.Errorf("decode recommendations: %w", err)
		}
	}
	if iv.Conversation, err = r.turns(ctx, id); err != nil {
		return nil, err
	}
	if iv.Scores, err = r.scores(ctx, id); err != nil {
		return nil, err
	}
	return &iv, nil
}

func (r *Repository) turns(ctx context.Context, id uuid.UUID) ([]models.ConversationTurn, error) {
	const q = `SELECT id, speaker, message, created_at, audio_url, video_url, mirrored_video_url, metadata
		FROM interview_turns WHERE interview_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.ConversationTurn{}
	for rows.Next() {
		var (
			t  models.ConversationTurn
			md []byte
		)
		if err := rows.Scan(&t.ID, &t.Speaker, &t.Message, &t.Timestamp, &t.AudioURL, &t.VideoURL, &t.MirroredVideoURL, &md); err != nil {
			return nil, err
		}
		if len(md) > 0 && string(md) != "null" {
			t.Metadata = &models.TurnMetadata{}
			if err := json.Unmarshal(md, t.Metadata); err != nil {
				return nil, fmt.Errorf("decode turn metadata: %w", err)
			}
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *Repository) scores(ctx context.Context, id uuid.UUID) ([]models.ScoreRecord, error) {
	const q = `SELECT id, turn_id, category, score, feedback, factors, created_at
		FROM interview_scores WHERE interview_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.ScoreRecord{}
	for rows.Next() {
		var (
			s       models.ScoreRecord
			factors []byte
		)
		if err := rows.Scan(&s.ID, &s.TurnID, &s.Category, &s.Score, &s.Feedback, &factors, &s.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(factors, &s.Factors); err != nil {
			return nil, fmt.Errorf("decode factors: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// AppendTurn writes the turn, its score and the running final score in one transaction.
// The interview row is held locked until commit.
func (r *Repository) AppendTurn(ctx context.Context, id uuid.UUID, turn models.ConversationTurn, score *models.ScoreRecord, final *float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := lockOpen(ctx, tx, id); err != nil {
		return err
	}
	if err := insertTurn(ctx, tx, id, turn); err != nil {
		return err
	}
	if score != nil {
		factors, err := json.Marshal(score.Factors)
		if err != nil {
			return fmt.Errorf("marshal factors: %w", err)
		}
		const qs = `INSERT INTO interview_scores (id, interview_id, turn_id, category, score, feedback, factors, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		if _, err := tx.Exec(ctx, qs, score.ID, id, score.TurnID, score.Category, score.Score, score.Feedback, factors, score.Timestamp); err != nil {
			return err
		}
		const qf = `UPDATE interviews SET final_score = $2, updated_at = NOW() WHERE id = $1`
		if _, err := tx.Exec(ctx, qf, id, final); err != nil {
			return err
		}
	} else {
		const qu = `UPDATE interviews SET updated_at = NOW(),
			admin_intervention = admin_intervention OR $2
			WHERE id = $1`
		if _, err := tx.Exec(ctx, qu, id, turn.Speaker == models.SpeakerAdmin); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// lockOpen locks the interview row for the rest of tx and returns its status. Terminal
// interviews yield ErrRecordClosed.
func lockOpen(ctx context.Context, tx pgx.Tx, id uuid.UUID) (models.InterviewStatus, error) {
	var status models.InterviewStatus
	err := tx.QueryRow(ctx, `SELECT status FROM interviews WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrRecordNotFound
	}
	if err != nil {
		return "", err
	}
	if status.Terminal() {
		return status, ErrRecordClosed
	}
	return status, nil
}

func insertTurn(ctx context.Context, tx pgx.Tx, id uuid.UUID, t models.ConversationTurn) error {
	var md []byte
	if t.Metadata != nil {
		b, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("marshal turn metadata: %w", err)
		}
		md = b
	}
	const q = `INSERT INTO interview_turns (id, interview_id, position, speaker, message, created_at, audio_url, video_url, mirrored_video_url, metadata)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM interview_turns WHERE interview_id = $2), $3, $4, $5, $6, $7, $8, $9)`
	_, err := tx.Exec(ctx, q, t.ID, id, t.Speaker, t.Message, t.Timestamp, t.AudioURL, t.VideoURL, t.MirroredVideoURL, md)
	return err
}

// UpdateStatus writes a lifecycle change. Nil fields are left unchanged.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, u StatusUpdate) error {
	var recs []byte
	if u.Recommendations != nil {
		recs, _ = json.Marshal(u.Recommendations)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockOpen(ctx, tx, id)
	if err != nil {
		return err
	}
	if u.From != "" && current != u.From {
		return ErrStatusConflict
	}
	const q = `UPDATE interviews SET status = $2,
		end_time = COALESCE($3, end_time),
		final_score = COALESCE($4, final_score),
		recommendations = COALESCE($5, recommendations),
		updated_at = NOW()
		WHERE id = $1 AND status IN ('active', 'paused')`
	tag, err := tx.Exec(ctx, q, id, u.Status, u.EndTime, u.FinalScore, recs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordClosed
	}
	return tx.Commit(ctx)
}

// UpdateTurnMirror sets the mirrored video URL of one turn.
func (r *Repository) UpdateTurnMirror(ctx context.Context, id, turnID uuid.UUID, url string) error {
	const q = `UPDATE interview_turns SET mirrored_video_url = $3 WHERE interview_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, q, id, turnID, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Stats aggregates all interviews.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	const q = `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'active'),
		COUNT(*) FILTER (WHERE status = 'paused'),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'abandoned'),
		AVG(final_score) FILTER (WHERE status = 'completed' AND final_score IS NOT NULL),
		COALESCE(AVG(EXTRACT(EPOCH FROM end_time - start_time)) FILTER (WHERE status = 'completed' AND end_time IS NOT NULL), 0)
		FROM interviews`
	var (
		s       Stats
		avg     *float64
		seconds float64
	)
	if err := r.pool.QueryRow(ctx, q).Scan(&s.Total, &s.Active, &s.Paused, &s.Completed, &s.Abandoned, &avg, &seconds); err != nil {
		return Stats{}, err
	}
	if avg != nil {
		s.AverageScore = roundScore(*avg)
	}
	s.AverageDuration = models.FormatDuration(time.Duration(seconds * float64(time.Second)))
	return s, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
