package db

import "context"

// Schema mirrors the hosted table the app was first built against.
// gen_random_uuid is built in from Postgres 13.
const Schema = `
CREATE TABLE IF NOT EXISTS cat_posts (
	id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	lat        double precision NOT NULL CHECK (lat BETWEEN -90 AND 90),
	lng        double precision NOT NULL CHECK (lng BETWEEN -180 AND 180),
	image_url  text NOT NULL,
	comment    varchar(100) NOT NULL DEFAULT '',
	created_at timestamptz DEFAULT now()
);
CREATE INDEX IF NOT EXISTS cat_posts_created_at_idx ON cat_posts (created_at DESC);
`

func EnsureSchema(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, Schema)
	return err
}
