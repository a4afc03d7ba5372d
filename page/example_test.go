package page_test

import (
	"context"
	"fmt"

	"github.com/momentics/hioload-page/page"
)

func ExamplePage() {
	p := page.New().
		Spawn(func() page.Task {
			return func(context.Context) error {
				fmt.Println("worker done")
				return nil
			}
		}).
		Spawn(func() page.Task {
			return func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}
		})
	p.Join()

	fmt.Println(p.Outcomes(), p.Err())
	// Output:
	// worker done
	// [natural-completion external-shutdown-observed] <nil>
}
