package lifecycle

import (
	"context"
	"errors"

	"github.com/robotomize/go-allure/internal/hook"
	"github.com/robotomize/go-allure/internal/repr"
)

// Case is one parameter set of a parametrized test. An empty ID is derived
// from the arguments.
type Case struct {
	ID   string
	Args []any
}

// Parametrize runs body as a separate test per case, named name[id] and
// carrying the represented arguments as parameters. Every case runs; the
// returned error joins the failures of all of them.
func (e *Execution) Parametrize(
	ctx context.Context,
	name string,
	meta hook.TestMeta,
	names []string,
	cases []Case,
	body Func,
) error {
	var errs []error
	for _, c := range cases {
		id := c.ID
		if id == "" {
			id = repr.CaseID(c.Args)
		}

		args := c.Args
		test := e.Test(repr.DisplayName(name, id), meta, repr.Capture(e.formatter, names, args))
		if err := test.Run(ctx, func(ctx context.Context) error {
			return body(ctx, args...)
		}); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
