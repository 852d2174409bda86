package sig

import "github.com/AnatoleLucet/sig/v2/internal"

// CycleError is the panic value raised when a computed or effect reads itself,
// directly or through other computeds.
type CycleError = internal.CycleError

// ReentrancyLimitError is the panic value raised when an effect keeps re-triggering itself
// within one flush. The pending effects of that flush are dropped.
type ReentrancyLimitError = internal.ReentrancyLimitError

// ErrStaleResource wraps the error instruments receive for a resource result that lost to a
// later load or a cancel. Callers of a resource never see it.
var ErrStaleResource = internal.ErrStaleResource
