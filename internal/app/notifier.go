package service

import (
	"context"

	"github.com/okian/quizarena/internal/domain/bracket"
	"github.com/okian/quizarena/pkg/logger"
)

// Notifier receives bracket events after they have been persisted.
type Notifier interface {
	Notify(ctx context.Context, events []bracket.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, events []bracket.Event)

func (f NotifierFunc) Notify(ctx context.Context, events []bracket.Event) { f(ctx, events) }

type logNotifier struct {
	logger logger.Logger
}

// NewLogNotifier returns a Notifier that writes one log line per event.
func NewLogNotifier(l logger.Logger) Notifier {
	return &logNotifier{logger: l}
}

func (n *logNotifier) Notify(ctx context.Context, events []bracket.Event) {
	for _, e := range events {
		n.logger.Info(ctx, "tournament event",
			logger.String("type", string(e.Type)),
			logger.String("tournament_id", e.TournamentID),
			logger.String("match_id", e.MatchID),
			logger.String("participant_id", e.ParticipantID),
			logger.Int("round", e.Round),
		)
	}
}
