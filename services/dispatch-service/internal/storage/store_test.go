package storage

import "github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"

var _ scheduling.Store = (*Repository)(nil)
