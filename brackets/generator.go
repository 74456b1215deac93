package brackets

import (
	"context"

	"github.com/Dosada05/team-registration/models"
)

type GenerateBracketParams struct {
	// Teams in seed order: Teams[0] is seed 1.
	Teams    []*models.Team
	Settings models.BracketSettings
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error)

	GetName() string
}
