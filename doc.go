// Package sqlpager compiles SQL templates into paginated statements.
//
// Overview
//
// A request is a SQL template with ":name" placeholders, its parameters,
// Orderings and a Pager. Compiler.Compile picks one of three strategies:
//   - offset: LIMIT/OFFSET counted from the first page. Used without a cursor
//     and when the requested page is closer to the first page than to the
//     cursor.
//   - forward keyset: continues from the boundary row of a Cursor stored by a
//     previous request, for pages at or after the cursor page.
//   - backward keyset: walks back from the boundary with reversed orderings.
//
// Every statement prefetches the pages needed to render Pager.EachSide links
// and one sentinel row to tell if more pages follow. Paging reduces the
// fetched rows into a Paginator and builds the Cursor the next request can use.
//
// Key concepts
//   - Orderings: multi-column ordering with explicit directions. Keyset
//     pagination requires at least one unique column.
//   - Pager: page number, page size, each side count and the total flag.
//   - Cursor: keyset boundary with an opaque token form, see DecodeCursor.
//   - CursorStore: keeps the latest cursor of a scope (MemoryStore, GORMStore).
//   - Executor: runs compiled queries through database/sql or gorm. Fetch
//     ties everything together.
//
// Parameters referenced more than once, lists and raw SQL fragments (Expr) are
// normalized so that every driver only sees unique scalar placeholders.
//
// The sqlpager command (cmd/sqlpager) exposes the compiler from the shell.
// Its compile subcommand prints a paginated query with its bindings.
package sqlpager
