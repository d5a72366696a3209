package schemes

import (
	"context"

	"github.com/openfroyo/urigraph/pkg/engine"
	"github.com/openfroyo/urigraph/pkg/message"
)

// Post dereferences post:name#target to a message. The fragment is split on
// Delimiter into the target path. Delivery is left to a message.Router.
type Post struct {
	Delimiter string
}

// Dereference implements engine.Scheme.
func (p *Post) Dereference(_ context.Context, req *engine.Request) (any, error) {
	fragment, _ := req.URI.Fragment()
	target := message.ParseTarget(fragment, p.Delimiter)
	return message.New(req.URI.Name(), target, req.Params.Map()), nil
}
