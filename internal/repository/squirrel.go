package repository

import sq "github.com/Masterminds/squirrel"

// psql builds every task and user statement in this package with PostgreSQL
// dollar placeholders, matching the pgx wire protocol.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
