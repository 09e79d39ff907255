// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"fmt"
)

// schemaDDL 全量建表语句，幂等
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id          VARCHAR(64) PRIMARY KEY,
		origin      TEXT NOT NULL,
		author      TEXT NOT NULL DEFAULT '',
		year        INT NOT NULL DEFAULT 0,
		modality    VARCHAR(32) NOT NULL DEFAULT '',
		url         TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS objects (
		id                 VARCHAR(64) PRIMARY KEY,
		object_type        VARCHAR(32) NOT NULL,
		title              TEXT NOT NULL DEFAULT '',
		body               TEXT NOT NULL DEFAULT '',
		ref_ranges         TEXT[] NOT NULL DEFAULT '{}',
		modality           VARCHAR(32) NOT NULL DEFAULT '',
		tags               TEXT[] NOT NULL DEFAULT '{}',
		source_id          VARCHAR(64) NOT NULL DEFAULT '',
		stability          DOUBLE PRECISION NOT NULL DEFAULT 0,
		embedding_pending  BOOLEAN NOT NULL DEFAULT TRUE,
		needs_review       BOOLEAN NOT NULL DEFAULT FALSE,
		tombstoned         BOOLEAN NOT NULL DEFAULT FALSE,
		published_at       TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_objects_source ON objects (source_id) WHERE source_id <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_objects_published ON objects (published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_objects_tags ON objects USING GIN (tags)`,

	`CREATE TABLE IF NOT EXISTS edges (
		id          VARCHAR(64) PRIMARY KEY,
		src_id      VARCHAR(64) NOT NULL REFERENCES objects(id),
		dst_id      VARCHAR(64) NOT NULL REFERENCES objects(id),
		kind        VARCHAR(32) NOT NULL,
		weight      DOUBLE PRECISION NOT NULL DEFAULT 0,
		features    JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (src_id, dst_id, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_src ON edges (src_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges (dst_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_updated ON edges (updated_at DESC)`,

	`CREATE TABLE IF NOT EXISTS insights (
		id            VARCHAR(64) PRIMARY KEY,
		insight_type  VARCHAR(32) NOT NULL,
		score         DOUBLE PRECISION NOT NULL,
		cluster_id    VARCHAR(128) NOT NULL,
		source_key    VARCHAR(160) NOT NULL DEFAULT '',
		mode          VARCHAR(32) NOT NULL DEFAULT 'study',
		status        VARCHAR(16) NOT NULL DEFAULT 'active',
		payload       JSONB NOT NULL DEFAULT '{}',
		emitted_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_insights_cluster ON insights (cluster_id, insight_type, emitted_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_insights_source_key ON insights (source_key, emitted_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_insights_status ON insights (status, emitted_at DESC)`,

	`CREATE TABLE IF NOT EXISTS user_actions (
		id            VARCHAR(64) PRIMARY KEY,
		insight_id    VARCHAR(64) NOT NULL REFERENCES insights(id),
		action        VARCHAR(16) NOT NULL,
		insight_type  VARCHAR(32) NOT NULL,
		mode          VARCHAR(32) NOT NULL DEFAULT 'study',
		score         DOUBLE PRECISION NOT NULL DEFAULT 0,
		confidence    DOUBLE PRECISION NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_actions_insight ON user_actions (insight_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_actions_mode ON user_actions (mode, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS weight_profiles (
		id          VARCHAR(64) PRIMARY KEY,
		mode        VARCHAR(32) NOT NULL,
		version     INT NOT NULL,
		w0          DOUBLE PRECISION NOT NULL,
		w1          DOUBLE PRECISION NOT NULL,
		w2          DOUBLE PRECISION NOT NULL,
		w3          DOUBLE PRECISION NOT NULL,
		w4          DOUBLE PRECISION NOT NULL,
		w5          DOUBLE PRECISION NOT NULL,
		tau_conv    DOUBLE PRECISION NOT NULL,
		tau_col     DOUBLE PRECISION NOT NULL,
		tau_lead    DOUBLE PRECISION NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (mode, version)
	)`,
}

// Migrate 执行幂等建表。多副本同时执行时靠 IF NOT EXISTS 兜底。
func (c *Client) Migrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.Migrate")
	defer span.End()

	for _, stmt := range schemaDDL {
		if err := c.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			span.RecordError(err)
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
