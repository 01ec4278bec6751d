package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block of a pipeline file.
type fileRoot struct {
	Settings     []*settingsBlock    `hcl:"settings,block"`
	Compartments []*compartmentBlock `hcl:"compartment,block"`
	Nodes        []*nodeBlock        `hcl:"node,block"`
	Connects     []*connectBlock     `hcl:"connect,block"`
	Remain       hcl.Body            `hcl:",remain"`
}

type settingsBlock struct {
	Workers        *int     `hcl:"workers,optional"`
	Cache          *string  `hcl:"cache,optional"`
	RedisAddr      *string  `hcl:"redis_addr,optional"`
	RedisPrefix    *string  `hcl:"redis_prefix,optional"`
	RunsDB         *string  `hcl:"runs_db,optional"`
	NotifyURL      *string  `hcl:"notify_url,optional"`
	SkipOnFailure  *bool    `hcl:"skip_on_failure,optional"`
	FailOnWarnings *bool    `hcl:"fail_on_warnings,optional"`
	Targets        []string `hcl:"targets,optional"`
	Body           hcl.Body `hcl:",remain"`
}

type compartmentBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type nodeBlock struct {
	Type        string          `hcl:"type,label"`
	Name        string          `hcl:"name,label"`
	Compartment string          `hcl:"compartment,optional"`
	Disabled    bool            `hcl:"disabled,optional"`
	PassThrough bool            `hcl:"pass_through,optional"`
	Params      *paramsBlock    `hcl:"params,block"`
	Iteration   *iterationBlock `hcl:"iteration,block"`
	Body        hcl.Body        `hcl:",remain"`
}

type paramsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type iterationBlock struct {
	Mode          string   `hcl:"mode,optional"`
	Strategy      string   `hcl:"strategy,optional"`
	Columns       []string `hcl:"columns,optional"`
	MergeMode     string   `hcl:"merge_mode,optional"`
	DataMergeMode string   `hcl:"data_merge_mode,optional"`
	SkipAmbiguous bool     `hcl:"skip_ambiguous,optional"`
}

type connectBlock struct {
	From hcl.Expression `hcl:"from"`
	To   hcl.Expression `hcl:"to"`
}
