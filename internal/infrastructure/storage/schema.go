package storage

import "strings"

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS sources (
	id {{id}},
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	score INTEGER,
	summary TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	origin_domain TEXT NOT NULL DEFAULT '',
	discovered_at {{time}} NOT NULL,
	consumed BOOLEAN NOT NULL DEFAULT FALSE,
	degraded BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_sources_discovered_at ON sources(discovered_at);

CREATE TABLE IF NOT EXISTS generated_articles (
	id {{id}},
	topic TEXT NOT NULL,
	title TEXT NOT NULL,
	meta_description TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	average_source_score {{float}},
	status TEXT NOT NULL DEFAULT 'generated',
	created_at {{time}} NOT NULL,
	target_publish_at {{time}}
);

CREATE INDEX IF NOT EXISTS idx_generated_articles_topic ON generated_articles(topic, created_at);

CREATE TABLE IF NOT EXISTS generated_images (
	id {{id}},
	article_id BIGINT NOT NULL REFERENCES generated_articles(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	url TEXT NOT NULL,
	alt_text TEXT NOT NULL DEFAULT '',
	caption TEXT NOT NULL DEFAULT '',
	license TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	author_url TEXT NOT NULL DEFAULT '',
	source_page_url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_generated_images_article ON generated_images(article_id, position);

CREATE TABLE IF NOT EXISTS generated_article_sources (
	article_id BIGINT NOT NULL REFERENCES generated_articles(id) ON DELETE CASCADE,
	source_id BIGINT NOT NULL REFERENCES sources(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (article_id, source_id)
);

CREATE TABLE IF NOT EXISTS topic_configs (
	topic TEXT PRIMARY KEY,
	search_breadth INTEGER NOT NULL,
	score_threshold INTEGER NOT NULL,
	selector_result_limit INTEGER NOT NULL,
	synth_result_limit INTEGER NOT NULL,
	length_words INTEGER NOT NULL,
	tone TEXT NOT NULL,
	image_count INTEGER NOT NULL,
	updated_at {{time}} NOT NULL
)
`

// schemaStatements renders the DDL for d, one statement per element.
func (d Dialect) schemaStatements() []string {
	ddl := strings.NewReplacer(
		"{{id}}", d.idColumn,
		"{{time}}", d.timeType,
		"{{float}}", d.floatType,
	).Replace(schemaTemplate)

	var statements []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
