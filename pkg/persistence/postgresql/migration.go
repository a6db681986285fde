package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflows table
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'published', 'paused')),
				trigger_event VARCHAR(255) NOT NULL,
				trigger_source VARCHAR(255) NOT NULL DEFAULT 'api',
				trigger_enabled BOOLEAN NOT NULL DEFAULT true,
				dry_run_enabled BOOLEAN NOT NULL DEFAULT false,
				kill_switch_enabled BOOLEAN NOT NULL DEFAULT false,
				max_executions_per_hour INT NOT NULL DEFAULT 100,
				published_version_id UUID,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_org ON workflows(organization_id);
			CREATE INDEX idx_workflows_org_trigger ON workflows(organization_id, trigger_event, status);

			-- Create workflow_versions table
			CREATE TABLE workflow_versions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				version_number INT NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'published', 'archived')),
				trigger_config JSONB NOT NULL DEFAULT '{}',
				condition_tree JSONB,
				actions JSONB NOT NULL DEFAULT '[]',
				activation_starts_at TIMESTAMP WITH TIME ZONE,
				activation_ends_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, version_number)
			);

			CREATE INDEX idx_workflow_versions_workflow_id ON workflow_versions(workflow_id);
			CREATE INDEX idx_workflow_versions_status ON workflow_versions(workflow_id, status);

			-- Create workflow_execution_logs table (append-only)
			CREATE TABLE workflow_execution_logs (
				id UUID PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				workflow_id UUID NOT NULL REFERENCES workflows(id),
				workflow_version_id UUID NOT NULL,
				trigger_event VARCHAR(255) NOT NULL,
				entity_type VARCHAR(255) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				dry_run BOOLEAN NOT NULL DEFAULT false,
				trigger_input JSONB DEFAULT '{}',
				rule_path JSONB DEFAULT '[]',
				action_results JSONB DEFAULT '[]',
				error_message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_logs_entity_window
				ON workflow_execution_logs(workflow_id, entity_type, entity_id, created_at);
			CREATE INDEX idx_execution_logs_org_workflow
				ON workflow_execution_logs(organization_id, workflow_id, created_at);

			-- Create audit_logs table
			CREATE TABLE audit_logs (
				id UUID PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				actor_user_id VARCHAR(255),
				entity_type VARCHAR(255) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				action VARCHAR(255) NOT NULL,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_audit_logs_org ON audit_logs(organization_id, created_at);
			CREATE INDEX idx_audit_logs_entity ON audit_logs(entity_type, entity_id);
		`,
	}
}
