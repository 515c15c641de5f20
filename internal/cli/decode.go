package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/sqlpager"
)

type decodeResult struct {
	Page          int                        `json:"page"`
	Size          int                        `json:"size"`
	EachSide      int                        `json:"eachSide"`
	NeedTotal     bool                       `json:"needTotal"`
	Orderings     string                     `json:"orderings"`
	Boundary      []sqlpager.BoundaryElement `json:"boundary"`
	NextPageCount int                        `json:"nextPageCount"`
	CreatedAt     time.Time                  `json:"createdAt"`
	ExpiresAt     *time.Time                 `json:"expiresAt,omitempty"`
	Expired       bool                       `json:"expired"`
}

func newDecodeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Show the content of a cursor token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cursor, err := sqlpager.DecodeCursor(args[0])
			if err != nil {
				return err
			}
			if cursor == nil {
				return fmt.Errorf("empty token")
			}

			result := newDecodeResult(cursor, time.Now())
			if root.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "page:       %d (size %d, each side %d, total %t)\n", result.Page, result.Size, result.EachSide, result.NeedTotal)
			fmt.Fprintf(w, "orderings:  %s\n", result.Orderings)
			for _, elem := range result.Boundary {
				fmt.Fprintf(w, "boundary:   %s = %#v\n", elem.Column, elem.Value)
			}
			fmt.Fprintf(w, "next pages: %d\n", result.NextPageCount)
			fmt.Fprintf(w, "created:    %s\n", result.CreatedAt.Format(time.RFC3339))
			if result.ExpiresAt != nil {
				fmt.Fprintf(w, "expires:    %s (expired: %t)\n", result.ExpiresAt.Format(time.RFC3339), result.Expired)
			}

			return nil
		},
	}
}

func newDecodeResult(cursor *sqlpager.Cursor, now time.Time) decodeResult {
	pager := cursor.Pager()
	result := decodeResult{
		Page:          pager.Page(),
		Size:          pager.Size(),
		EachSide:      pager.EachSide(),
		NeedTotal:     pager.NeedTotal(),
		Orderings:     cursor.Orderings().ToSQL(),
		Boundary:      cursor.Boundary(),
		NextPageCount: cursor.NextPageCount(),
		CreatedAt:     cursor.CreatedAt(),
		Expired:       cursor.Expired(now),
	}
	if expiresAt := cursor.ExpiresAt(); !expiresAt.IsZero() {
		result.ExpiresAt = &expiresAt
	}

	return result
}
