package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_rules (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_kind VARCHAR(50) NOT NULL,
				conditions JSONB NOT NULL DEFAULT '{}',
				actions JSONB NOT NULL DEFAULT '[]',
				priority VARCHAR(10) NOT NULL CHECK (priority IN ('high', 'medium', 'low')),
				is_active BOOLEAN NOT NULL DEFAULT true,
				execution_count BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_rules_trigger_active ON workflow_rules(trigger_kind, is_active) WHERE deleted_at IS NULL;
			CREATE INDEX idx_workflow_rules_created_at ON workflow_rules(created_at);

			CREATE TABLE workflow_executions (
				id VARCHAR(64) PRIMARY KEY,
				rule_id VARCHAR(64) NOT NULL REFERENCES workflow_rules(id),
				rule_name VARCHAR(255) NOT NULL,
				trigger_kind VARCHAR(50) NOT NULL,
				event_id VARCHAR(64),
				idempotency_key VARCHAR(255) NOT NULL,
				trigger_payload JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'success', 'failed')),
				result TEXT,
				error_message TEXT,
				action_results JSONB NOT NULL DEFAULT '[]',
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_executions_rule_id ON workflow_executions(rule_id);
			CREATE INDEX idx_workflow_executions_executed_at ON workflow_executions(executed_at DESC);
			CREATE INDEX idx_workflow_executions_pending ON workflow_executions(executed_at) WHERE status = 'pending';
			CREATE UNIQUE INDEX idx_workflow_executions_success_key
				ON workflow_executions(rule_id, idempotency_key) WHERE status = 'success';
		`,
	}
}
