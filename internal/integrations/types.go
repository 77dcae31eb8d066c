// internal/integrations/types.go
package integrations

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/bartek5186/erp2www/internal/db"
)

type Integration interface {
	Name() string
	Start(ctx context.Context) error // blokuje do ctx.Done (long-running) lub odpala własną pętlę
	Stop()                           // idempotent
}

// Factory buduje integrację z jej surowego configu JSON. Dostęp do bazy
// idzie jawnie przez parametr, nie przez context.Value.
type Factory func(log zerolog.Logger, store *db.Handle, raw json.RawMessage) (Integration, error)
