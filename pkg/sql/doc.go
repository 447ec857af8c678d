// Package sql implements the template conventions of query definitions.
//
// A base query is an opaque SQL template with two kinds of markers:
//
//	SELECT id, name, dept_id
//	FROM emp
//	WHERE 1=1 --deptFilter --orderBy
//
// Bind tokens are written as :name and must resolve to a declared parameter or
// to one of the reserved pagination tokens (:offset, :limit, :startRow, :endRow).
// A double colon (x::int) is a cast, never a token. Tokens inside string
// literals, quoted identifiers and comments are ignored.
//
// Placeholders are written as --name with no space after the dashes. Each one
// marks a single injection point that is replaced with a criteria fragment, the
// filter conditions (--filters) or the ORDER BY clause (--orderBy). A comment
// with a space after the dashes ("-- note") is an ordinary line comment.
//
// Before execution the named SQL is bound: every :name token becomes the
// positional placeholder of the target dialect ($1, @p1, :1 or ?) and the
// values are returned in placeholder order.
package sql
