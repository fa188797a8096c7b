package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflows, their actions and the webhooks bound to webhook actions.
			-- Children reference (id, owner_id) so a child can never cross owners.
			CREATE TABLE workflows (
				id VARCHAR(64) PRIMARY KEY,
				seq BIGSERIAL,
				owner_id VARCHAR(255) NOT NULL,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(16) NOT NULL CHECK (status IN ('online', 'offline')),
				object JSONB,
				icon_url TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (id, owner_id)
			);

			CREATE INDEX idx_workflows_owner ON workflows(owner_id);

			CREATE TABLE actions (
				id VARCHAR(64) PRIMARY KEY,
				seq BIGSERIAL,
				owner_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(64) NOT NULL,
				type VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(16) NOT NULL DEFAULT 'offline',
				inputs JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (id, owner_id),
				UNIQUE (id, workflow_id, owner_id),
				FOREIGN KEY (workflow_id, owner_id) REFERENCES workflows(id, owner_id) ON DELETE CASCADE
			);

			CREATE INDEX idx_actions_workflow ON actions(workflow_id, owner_id);

			CREATE TABLE webhooks (
				id VARCHAR(64) PRIMARY KEY,
				seq BIGSERIAL,
				owner_id VARCHAR(255) NOT NULL,
				action_id VARCHAR(64) NOT NULL,
				workflow_id VARCHAR(64) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				FOREIGN KEY (action_id, workflow_id, owner_id)
					REFERENCES actions(id, workflow_id, owner_id) ON DELETE CASCADE
			);

			CREATE INDEX idx_webhooks_action ON webhooks(action_id);
			CREATE INDEX idx_webhooks_workflow ON webhooks(workflow_id, owner_id);
		`,
		2: `
			-- Run bookkeeping for workflows and actions.
			CREATE TABLE workflow_runs (
				id VARCHAR(64) PRIMARY KEY,
				seq BIGSERIAL,
				owner_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(64) NOT NULL,
				status VARCHAR(16) NOT NULL
					CHECK (status IN ('pending', 'running', 'failure', 'success', 'canceled')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (id, owner_id),
				FOREIGN KEY (workflow_id, owner_id) REFERENCES workflows(id, owner_id) ON DELETE CASCADE
			);

			CREATE INDEX idx_workflow_runs_workflow ON workflow_runs(workflow_id, owner_id);

			CREATE TABLE action_runs (
				id VARCHAR(64) PRIMARY KEY,
				seq BIGSERIAL,
				owner_id VARCHAR(255) NOT NULL,
				action_id VARCHAR(64) NOT NULL,
				workflow_run_id VARCHAR(64) NOT NULL,
				status VARCHAR(16) NOT NULL
					CHECK (status IN ('pending', 'running', 'failure', 'success', 'canceled')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				FOREIGN KEY (action_id, owner_id) REFERENCES actions(id, owner_id) ON DELETE CASCADE,
				FOREIGN KEY (workflow_run_id, owner_id) REFERENCES workflow_runs(id, owner_id) ON DELETE CASCADE
			);

			CREATE INDEX idx_action_runs_action ON action_runs(action_id, owner_id);
			CREATE INDEX idx_action_runs_workflow_run ON action_runs(workflow_run_id);
		`,
	}
}
