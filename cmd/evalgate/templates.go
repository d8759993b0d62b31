package main

const defaultConfigYAML = `budgets:
  p95_latency_ms: 1500
  max_cost_usd_per_item: 0.02
fixtures:
  path: eval/fixtures/*.json
outputs:
  path: .evalgate/outputs/*.json
evaluators:
  - name: formatting
    type: schema
    weight: 0.3
    schema_path: eval/schemas/queue_item.json
  - name: category_accuracy
    type: category
    weight: 0.3
    expected_field: category
  - name: required_fields
    type: required_fields
    weight: 0.2
  - name: latency_cost
    type: budgets
    weight: 0.2
gate:
  min_overall_score: 0.9
  allow_regression: false
report:
  pr_comment: true
  artifact_path: .evalgate/results.json
baseline:
  ref: origin/main
telemetry:
  mode: local_only
`

const exampleSchemaJSON = `{
  "type": "object",
  "required": ["title", "category", "priority"],
  "properties": {
    "title": {"type": "string", "minLength": 3},
    "category": {"type": "string", "enum": ["billing", "bug", "feature", "other"]},
    "priority": {"type": "string", "enum": ["low", "medium", "high"]},
    "assignee": {"type": "string"}
  },
  "additionalProperties": false
}
`

const exampleFixtureJSON = `{
  "input": {
    "subject": "Invoice charged twice",
    "body": "Hi, my May invoice was charged two times, can you help?"
  },
  "expected": {
    "category": "billing",
    "priority": "high"
  },
  "meta": {
    "latency_ms": 840,
    "cost_usd": 0.004
  }
}
`

const qualityJudgePrompt = `You are reviewing the output of an automated triage system.

Input:
{input}

Expected:
{expected}

Actual output:
{output}

Rate how well the actual output satisfies the expectation on a scale from
0.0 (unusable) to 1.0 (perfect). Reply with a single line:
Score: <value>
`

const sentimentJudgePrompt = `You are judging the tone of a support conversation.

Transcript:
{transcript}

Expected outcome:
{expected}

Rate whether the assistant stays professional and helpful throughout, from
0.0 (hostile or unhelpful) to 1.0 (consistently professional). Reply with a
single line:
Score: <value>
`
