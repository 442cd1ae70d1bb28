package chat

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gopherchat/gopherchat/internal/ai"
)

// Service runs the generate-then-persist pipeline shared by both channels.
type Service struct {
	repo    *Repo
	gateway *ai.Gateway
	mirror  Mirror
}

func NewService(repo *Repo, gateway *ai.Gateway, mirror Mirror) *Service {
	if mirror == nil {
		mirror = NopMirror{}
	}
	return &Service{repo: repo, gateway: gateway, mirror: mirror}
}

// mirrorTimeout bounds the detached secondary-store publish.
const mirrorTimeout = 5 * time.Second

// SendMessage generates a reply for the user's message and records the
// exchange. The primary write must succeed or the whole operation fails;
// the secondary mirror is fire-and-forget and can never fail the request.
func (s *Service) SendMessage(ctx context.Context, userID uint64, message string, requested ai.ProviderName) (*Exchange, error) {
	reply, used, err := s.gateway.Reply(ctx, message, requested)
	if err != nil {
		return nil, err
	}

	e := &Exchange{
		UserID:   userID,
		Message:  message,
		Response: reply,
		Provider: string(used),
	}
	if err := s.repo.InsertExchange(ctx, e); err != nil {
		return nil, err
	}

	// Detached from the request: the mirror may lag or miss records and is
	// never relied on for correctness.
	go func(doc MirrorDocument) {
		mctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := s.mirror.AppendExchange(mctx, doc); err != nil {
			log.Printf("chat: mirror append failed user=%s exchange=%d: %v", doc.UserID, doc.ExchangeID, err)
		}
	}(MirrorDocument{
		ExchangeID: e.ID,
		UserID:     strconv.FormatUint(userID, 10),
		Message:    e.Message,
		Response:   e.Response,
		Provider:   e.Provider,
		Timestamp:  e.CreatedAt,
	})

	return e, nil
}

// History reads from the primary store only, newest first.
func (s *Service) History(ctx context.Context, userID uint64) ([]Exchange, error) {
	return s.repo.ListExchanges(ctx, userID)
}

// DeleteHistory removes the user's exchanges from the primary store, then
// makes a best-effort attempt against the secondary. Secondary failure is
// logged and tolerated.
func (s *Service) DeleteHistory(ctx context.Context, userID uint64) error {
	if err := s.repo.DeleteExchanges(ctx, userID); err != nil {
		return err
	}

	uid := strconv.FormatUint(userID, 10)
	mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()
	if err := s.mirror.DeleteHistory(mctx, uid); err != nil {
		log.Printf("chat: mirror delete failed user=%s: %v", uid, err)
	}
	return nil
}
