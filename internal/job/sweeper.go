package job

import (
	"context"
	"time"

	"app/internal/repository"

	"github.com/labstack/gommon/log"
)

// 掃除の余裕（refresh TTLにこれを足した分だけ残す）
const sweepGrace = 24 * time.Hour

// Sweeper は期限切れのトークン行を削除する。
type Sweeper struct {
	tokens    repository.TokenRepository
	retention time.Duration
}

// NewSweeper の保持期間は refresh TTL + 1日。
func NewSweeper(tokens repository.TokenRepository, refreshTTL time.Duration) *Sweeper {
	return &Sweeper{
		tokens:    tokens,
		retention: refreshTTL + sweepGrace,
	}
}

// Sweep は1回分の掃除を実行する。
// 行単位の削除失敗はログだけ残して続行。全体の失敗も次回に任せる（プロセスは落とさない）。
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)

	tokens, err := s.tokens.FindOlderThan(ctx, cutoff)
	if err != nil {
		log.Errorf("token sweep: list expired: %v", err)
		return
	}

	if len(tokens) == 0 {
		return
	}

	deleted := 0
	for _, t := range tokens {
		if err := s.tokens.DeleteByID(ctx, t.ID); err != nil {
			log.Warnf("token sweep: delete %s: %v", t.ID, err)
			continue
		}
		deleted++
	}

	log.Infof("token sweep: deleted %d of %d expired tokens", deleted, len(tokens))
}
