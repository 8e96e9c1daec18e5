package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists cards and tournaments in a SQLite file. It holds a
// single connection, so every transaction is serialized.
type SQLiteStore struct {
	db          *sql.DB
	path        string
	busyTimeout time.Duration
	log         logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:        path,
		busyTimeout: 5 * time.Second,
		log:         logger.Get().Named("sqlite"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info(ctx, "sqlite store ready", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	dir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access migrations directory: %w", err)
	}
	src, err := iofs.New(dir, ".")
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	// m.Close would close the shared *sql.DB as well.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTransaction runs fn in a transaction, committing on success and rolling
// back on error or panic.
func (s *SQLiteStore) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
			}
		} else if err = tx.Commit(); err != nil {
			err = fmt.Errorf("failed to commit transaction: %w", err)
		}
	}()
	return fn(tx)
}

// Cards

const cardColumns = `id, user_id, deck_id, front, back, ease_factor, interval_days, repetitions,
	next_review_at, last_reviewed_at, created_at`

func (s *SQLiteStore) CreateCard(ctx context.Context, card model.Flashcard) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO cards (`+cardColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		card.ID, card.UserID, card.DeckID, card.Front, card.Back, card.EaseFactor, card.IntervalDays,
		card.Repetitions, formatTime(card.NextReviewAt), formatTimePtr(card.LastReviewedAt), formatTime(card.CreatedAt))
	if isConstraint(err) {
		return fmt.Errorf("card %s: %w", card.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCard(ctx context.Context, id string) (model.Flashcard, error) {
	return getCard(ctx, s.db, id)
}

func getCard(ctx context.Context, q querier, id string) (model.Flashcard, error) {
	row := q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Flashcard{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return card, err
}

func (s *SQLiteStore) UpdateCard(ctx context.Context, id string, fn CardUpdate) (model.Flashcard, error) {
	var updated model.Flashcard
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		card, err := getCard(ctx, tx, id)
		if err != nil {
			return err
		}
		next, log, err := fn(card)
		if err != nil {
			return err
		}
		next.ID = id
		_, err = tx.ExecContext(ctx, `UPDATE cards SET user_id = ?, deck_id = ?, front = ?, back = ?,
			ease_factor = ?, interval_days = ?, repetitions = ?, next_review_at = ?, last_reviewed_at = ?
			WHERE id = ?`,
			next.UserID, next.DeckID, next.Front, next.Back, next.EaseFactor, next.IntervalDays,
			next.Repetitions, formatTime(next.NextReviewAt), formatTimePtr(next.LastReviewedAt), id)
		if err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}
		if log != nil {
			_, err = tx.ExecContext(ctx, `INSERT INTO review_logs
				(id, card_id, submission_id, quality, reviewed_at, interval_days, ease_factor)
				VALUES (?,?,?,?,?,?,?)`,
				log.ID, id, log.SubmissionID, log.Quality, formatTime(log.ReviewedAt), log.IntervalDays, log.EaseFactor)
			if err != nil {
				return fmt.Errorf("failed to insert review log: %w", err)
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return model.Flashcard{}, err
	}
	return updated, nil
}

func (s *SQLiteStore) DueCards(ctx context.Context, userID string, now time.Time, limit int) ([]model.Flashcard, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards
		WHERE user_id = ? AND next_review_at <= ?
		ORDER BY next_review_at, id LIMIT ?`, userID, formatTime(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due cards: %w", err)
	}
	defer rows.Close()

	out := make([]model.Flashcard, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountDue(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE next_review_at <= ?`, formatTime(now)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count due cards: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) ReviewLogs(ctx context.Context, cardID string) ([]model.ReviewLog, error) {
	if _, err := getCard(ctx, s.db, cardID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, card_id, submission_id, quality, reviewed_at,
		interval_days, ease_factor FROM review_logs WHERE card_id = ? ORDER BY seq`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query review logs: %w", err)
	}
	defer rows.Close()

	out := make([]model.ReviewLog, 0)
	for rows.Next() {
		var (
			l          model.ReviewLog
			reviewedAt string
		)
		if err := rows.Scan(&l.ID, &l.CardID, &l.SubmissionID, &l.Quality, &reviewedAt, &l.IntervalDays, &l.EaseFactor); err != nil {
			return nil, fmt.Errorf("failed to scan review log: %w", err)
		}
		if l.ReviewedAt, err = parseTime(reviewedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Tournaments

func (s *SQLiteStore) CreateTournament(ctx context.Context, t model.Tournament) error {
	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO tournaments
			(id, name, status, current_round, bracket_size, winner_id, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?)`,
			t.ID, t.Name, string(t.Status), t.CurrentRound, t.BracketSize, t.WinnerID,
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
		if isConstraint(err) {
			return fmt.Errorf("tournament %s: %w", t.ID, ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert tournament: %w", err)
		}
		return saveChildren(ctx, tx, t)
	})
}

func (s *SQLiteStore) GetTournament(ctx context.Context, id string) (model.Tournament, error) {
	var t model.Tournament
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = loadTournament(ctx, tx, id)
		return err
	})
	return t, err
}

func (s *SQLiteStore) UpdateTournament(ctx context.Context, id string, fn TournamentUpdate) (model.Tournament, error) {
	var updated model.Tournament
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		t, err := loadTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := fn(t)
		if err != nil {
			return err
		}
		next.ID = id
		_, err = tx.ExecContext(ctx, `UPDATE tournaments SET name = ?, status = ?, current_round = ?,
			bracket_size = ?, winner_id = ?, updated_at = ? WHERE id = ?`,
			next.Name, string(next.Status), next.CurrentRound, next.BracketSize, next.WinnerID,
			formatTime(next.UpdatedAt), id)
		if err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}
		if err := saveChildren(ctx, tx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return model.Tournament{}, err
	}
	return updated, nil
}

func (s *SQLiteStore) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	var out []model.Tournament
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM tournaments ORDER BY created_at DESC, id`)
		if err != nil {
			return fmt.Errorf("failed to list tournaments: %w", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan tournament id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		out = make([]model.Tournament, 0, len(ids))
		for _, id := range ids {
			t, err := loadTournament(ctx, tx, id)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	return out, err
}

func loadTournament(ctx context.Context, q querier, id string) (model.Tournament, error) {
	var (
		t                    model.Tournament
		status               string
		createdAt, updatedAt string
	)
	err := q.QueryRowContext(ctx, `SELECT id, name, status, current_round, bracket_size, winner_id,
		created_at, updated_at FROM tournaments WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &status, &t.CurrentRound, &t.BracketSize, &t.WinnerID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tournament{}, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Tournament{}, fmt.Errorf("failed to load tournament: %w", err)
	}
	t.Status = model.TournamentStatus(status)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Tournament{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Tournament{}, err
	}

	if t.Participants, err = loadParticipants(ctx, q, id); err != nil {
		return model.Tournament{}, err
	}

	mrow, err := q.QueryContext(ctx, `SELECT id, round, match_number, player1_id, player2_id, winner_id,
		player1_score, player2_score, status, next_match_id, next_slot FROM matches
		WHERE tournament_id = ? ORDER BY match_number`, id)
	if err != nil {
		return model.Tournament{}, fmt.Errorf("failed to load matches: %w", err)
	}
	defer mrow.Close()
	t.Matches = make([]model.Match, 0)
	for mrow.Next() {
		var (
			m     model.Match
			mstat string
			mslot int
		)
		if err := mrow.Scan(&m.ID, &m.Round, &m.MatchNumber, &m.Player1ID, &m.Player2ID, &m.WinnerID,
			&m.Player1Score, &m.Player2Score, &mstat, &m.NextMatchID, &mslot); err != nil {
			return model.Tournament{}, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Status = model.MatchStatus(mstat)
		m.NextSlot = model.Slot(mslot)
		t.Matches = append(t.Matches, m)
	}
	return t, mrow.Err()
}

func loadParticipants(ctx context.Context, q querier, id string) ([]model.Participant, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, user_id, seed, eliminated, eliminated_in_round,
		total_score, matches_won, matches_played FROM participants
		WHERE tournament_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	out := make([]model.Participant, 0)
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.UserID, &p.Seed, &p.Eliminated, &p.EliminatedInRound,
			&p.TotalScore, &p.MatchesWon, &p.MatchesPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// saveChildren replaces the participants and matches of t.
func saveChildren(ctx context.Context, tx *sql.Tx, t model.Tournament) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE tournament_id = ?`, t.ID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = ?`, t.ID); err != nil {
		return fmt.Errorf("failed to clear matches: %w", err)
	}
	for i, p := range t.Participants {
		_, err := tx.ExecContext(ctx, `INSERT INTO participants (tournament_id, id, position, user_id, seed,
			eliminated, eliminated_in_round, total_score, matches_won, matches_played)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			t.ID, p.ID, i, p.UserID, p.Seed, p.Eliminated, p.EliminatedInRound, p.TotalScore, p.MatchesWon, p.MatchesPlayed)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	for _, m := range t.Matches {
		_, err := tx.ExecContext(ctx, `INSERT INTO matches (tournament_id, id, round, match_number, player1_id,
			player2_id, winner_id, player1_score, player2_score, status, next_match_id, next_slot)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			t.ID, m.ID, m.Round, m.MatchNumber, m.Player1ID, m.Player2ID, m.WinnerID,
			m.Player1Score, m.Player2Score, string(m.Status), m.NextMatchID, int(m.NextSlot))
		if err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (model.Flashcard, error) {
	var (
		c                   model.Flashcard
		nextReview, created string
		lastReviewed        sql.NullString
	)
	err := row.Scan(&c.ID, &c.UserID, &c.DeckID, &c.Front, &c.Back, &c.EaseFactor, &c.IntervalDays,
		&c.Repetitions, &nextReview, &lastReviewed, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Flashcard{}, err
		}
		return model.Flashcard{}, fmt.Errorf("failed to scan card: %w", err)
	}
	if c.NextReviewAt, err = parseTime(nextReview); err != nil {
		return model.Flashcard{}, err
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return model.Flashcard{}, err
	}
	if lastReviewed.Valid {
		t, err := parseTime(lastReviewed.String)
		if err != nil {
			return model.Flashcard{}, err
		}
		c.LastReviewedAt = &t
	}
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
