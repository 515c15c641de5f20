package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/sqlpager"
)

type compileOptions struct {
	sql      string
	params   []string
	sort     []string
	page     int
	size     int
	eachSide int
	total    bool
	cursor   bool
	token    string
}

type compileResult struct {
	SQL      string          `json:"sql"`
	Bindings []bindingResult `json:"bindings"`
	Mode     string          `json:"mode,omitempty"`
	Offset   int             `json:"offset,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

type bindingResult struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func newCompileCmd(root *rootOptions) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a paginated statement",
		Long: `Compiles a SQL template into the statement fetching the requested page.

Without --page the statement is only ordered. A --token produced by a
previous fetch switches to keyset pagination when it fits the request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			req, err := opts.request(cmd, cfg)
			if err != nil {
				return err
			}

			plan, err := root.newCompiler(cmd, cfg).Compile(req)
			if err != nil {
				return err
			}

			result := newCompileResult(plan.Query)
			if plan.Pager != nil {
				result.Mode = plan.Mode.String()
				result.Offset = plan.Offset
				result.Limit = plan.Limit
			}

			return writeResult(cmd.OutOrStdout(), root.jsonOutput, result)
		},
	}

	cmd.Flags().StringVar(&opts.sql, "sql", "", "SQL template")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Parameter as key=value, repeatable")
	cmd.Flags().StringArrayVarP(&opts.sort, "sort", "s", nil, `Ordering as "column asc|desc", repeatable`)
	cmd.Flags().IntVar(&opts.page, "page", 0, "Requested page, starting from 1")
	cmd.Flags().IntVar(&opts.size, "size", 0, "Page size, the config default when omitted")
	cmd.Flags().IntVar(&opts.eachSide, "each-side", 0, "Page links on either side, the config default when omitted")
	cmd.Flags().BoolVar(&opts.total, "total", false, "Count the whole dataset")
	cmd.Flags().BoolVar(&opts.cursor, "cursor", false, "Enable keyset pagination without a token")
	cmd.Flags().StringVar(&opts.token, "token", "", "Cursor token of a previous fetch")
	_ = cmd.MarkFlagRequired("sql")

	return cmd
}

func (o *compileOptions) request(cmd *cobra.Command, cfg sqlpager.Config) (sqlpager.Request, error) {
	params, err := parseParams(o.params)
	if err != nil {
		return sqlpager.Request{}, err
	}

	orderings, err := parseOrderings(o.sort)
	if err != nil {
		return sqlpager.Request{}, err
	}

	req := sqlpager.Request{SQL: o.sql, Orderings: orderings, Params: params}
	if o.page <= 0 && o.token == "" {
		return req, nil
	}

	cursor, err := sqlpager.DecodeCursor(o.token)
	if err != nil {
		return sqlpager.Request{}, err
	}

	pager := cfg.Pager(o.page, o.size)
	if cmd.Flags().Changed("each-side") {
		pager = pager.WithEachSide(o.eachSide)
	}
	if o.total {
		pager = pager.WithTotal()
	}
	if o.cursor || cursor != nil {
		pager = pager.WithCursor()
	}

	req.Pager = &pager
	req.Cursor = cursor

	return req, nil
}

func newCountCmd(root *rootOptions) *cobra.Command {
	var (
		text   string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Compile the total count statement of a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			parsed, err := parseParams(params)
			if err != nil {
				return err
			}

			query, err := root.newCompiler(cmd, cfg).CountQuery(text, parsed)
			if err != nil {
				return err
			}

			return writeResult(cmd.OutOrStdout(), root.jsonOutput, newCompileResult(query))
		},
	}

	cmd.Flags().StringVar(&text, "sql", "", "SQL template")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter as key=value, repeatable")
	_ = cmd.MarkFlagRequired("sql")

	return cmd
}

func newCompileResult(query sqlpager.Query) compileResult {
	result := compileResult{SQL: query.SQL, Bindings: make([]bindingResult, 0, len(query.Bindings))}
	for _, binding := range query.Bindings {
		result.Bindings = append(result.Bindings, bindingResult{Name: binding.Name, Value: binding.Value})
	}

	return result
}

func writeResult(w io.Writer, jsonOutput bool, result compileResult) error {
	if jsonOutput {
		return writeJSON(w, result)
	}

	if _, err := fmt.Fprintln(w, result.SQL); err != nil {
		return err
	}

	for _, binding := range result.Bindings {
		if _, err := fmt.Fprintf(w, "-- :%s = %#v\n", binding.Name, binding.Value); err != nil {
			return err
		}
	}

	if result.Mode != "" {
		if _, err := fmt.Fprintf(w, "-- mode=%s offset=%d limit=%d\n", result.Mode, result.Offset, result.Limit); err != nil {
			return err
		}
	}

	return nil
}
