package db

import (
	"fmt"

	"qamod/internal/models"
)

// Domain-level database error sentinels. All wrap models.ErrNotFound.
var (
	ErrUserNotFound         = fmt.Errorf("user %w", models.ErrNotFound)
	ErrQuestionNotFound     = fmt.Errorf("question %w", models.ErrNotFound)
	ErrContentNotFound      = fmt.Errorf("content %w", models.ErrNotFound)
	ErrReviewItemNotFound   = fmt.Errorf("review item %w", models.ErrNotFound)
	ErrCloseReasonNotFound  = fmt.Errorf("close reason %w", models.ErrNotFound)
	ErrThresholdNotFound    = fmt.Errorf("review threshold %w", models.ErrNotFound)
	ErrClosureConfigMissing = fmt.Errorf("closure config %w", models.ErrNotFound)
)
