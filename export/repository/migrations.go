package repository

import "github.com/ncobase/docport/data"

// Migrations is the ordered schema history of the job store. Version 1 is the
// original schema; version 2 added the download-code field, so a store created
// by the older schema upgrades without data loss.
var Migrations = []data.Migration{
	{
		Version: 1,
		Name:    "create_jobs",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS jobs (
				id TEXT PRIMARY KEY,
				status TEXT NOT NULL DEFAULT 'pending',
				progress INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				session_id TEXT NOT NULL,
				user_id TEXT,
				payload TEXT NOT NULL,
				options TEXT NOT NULL,
				result_path TEXT,
				expires_at TEXT,
				error TEXT
			);
		`},
	},
	{
		Version: 2,
		Name:    "add_download_code",
		Statements: []string{
			`ALTER TABLE jobs ADD COLUMN download_code TEXT;`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_download_code ON jobs (download_code) WHERE download_code IS NOT NULL;`,
		},
	},
}
