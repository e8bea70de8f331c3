package port

import "context"

// Mail is one outbound notification message
type Mail struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends notification mail. Delivery is best-effort from the
// workflow's point of view: a failed send never fails a transition.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// CacheInvalidator drops cached read views by named tag after a
// successful write.
type CacheInvalidator interface {
	Invalidate(tags ...string)
}

// ViewCache caches list/detail projections under a named tag so a
// write to the family can drop them all at once.
type ViewCache interface {
	CacheInvalidator
	Get(key string) (interface{}, bool)
	Set(tag, key string, value interface{})
}
