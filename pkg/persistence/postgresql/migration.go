package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workspaces table
			CREATE TABLE workspaces (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				owner VARCHAR(255),
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workspaces_owner ON workspaces(owner);
			CREATE INDEX idx_workspaces_created_at ON workspaces(created_at);

			-- Create workflow_runs table
			CREATE TABLE workflow_runs (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_runs_workspace_id ON workflow_runs(workspace_id);
			CREATE INDEX idx_workflow_runs_status ON workflow_runs(status);
			CREATE INDEX idx_workflow_runs_created_at ON workflow_runs(created_at);

			-- Create generations table
			CREATE TABLE generations (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_generations_workspace_id ON generations(workspace_id);
			CREATE INDEX idx_generations_node_id ON generations(node_id);
			CREATE INDEX idx_generations_status ON generations(status);

			-- Create node_generations table: one row per (workspace, node)
			-- pointing at the node's most recent generation
			CREATE TABLE node_generations (
				workspace_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				generation_id VARCHAR(255) NOT NULL REFERENCES generations(id),
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (workspace_id, node_id)
			);

			CREATE INDEX idx_node_generations_generation_id ON node_generations(generation_id);
		`,
	}
}
