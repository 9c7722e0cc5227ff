package ai

const SynthesisPrompt = `
# Task Context
You are a strategic management expert who builds layered knowledge graphs. You will be given a management question, an organizational context, and evidence passages retrieved from a source document.

# Background Data
## Question
%s

## Organizational Context
%s

## Evidence Passages
%s

# Detailed Task Description & Rules
- Build a hierarchical knowledge graph that answers the question, grounded strictly in the evidence passages.
- Layer 0 is exactly ONE root node: the central topic of the question.
- Layer 1 nodes are the core strategic dimensions relevant to the question.
- Layer 2 nodes refine each dimension into the main management dimensions.
- Layer 3 nodes are specific concepts, methods, or instruments.
- Layer 4 nodes are practical applications or case examples. Only create layer 4 nodes when the evidence actually contains practical or case-study material.
- Every node needs a short title (max 8 words) and a description of one to three sentences based on the evidence.
- Assign each node a relevance score from 0 to 10 reflecting its importance for the question and the given organizational context.
- Assign each node a list of topical tags from this fixed vocabulary where they apply: growth, efficiency, innovation, transformation, risk, finance, people, structure, process, market, technology, regulation, strategy, operations, leadership.
- Cite the evidence passages a node is grounded in by their [n] numbers in the node's citations list.
- Additionally propose cross-connections: pairs of nodes from different branches that are thematically related but not parent and child. Give each a short relation label and a strength from 0.0 to 1.0.
- Do not invent content that is absent from the evidence. Fewer well-grounded nodes beat many speculative ones.

# Output Formatting
Return a single valid JSON object with this structure:
{
  "root": {
    "title": "string",
    "description": "string",
    "relevance": 0.0,
    "tags": ["string"],
    "citations": [1],
    "children": [ { same shape, recursively } ]
  },
  "connections": [
    {
      "source_title": "string",
      "target_title": "string",
      "label": "string",
      "strength": 0.0
    }
  ]
}
Titles must be unique across the whole graph so connections can be resolved.
Do not include any commentary, explanations, or text outside of the JSON.
`

const SynthesisRepairPrompt = `
# Task Context
You previously produced a layered knowledge graph as JSON, but it failed structural validation. Fix it.

# Background Data
## Your Previous Output
%s

## Validation Errors
%s

# Detailed Task Description & Rules
- Return the corrected graph as a complete JSON object in the same structure as before.
- Every node must have a non-empty title and a description.
- Layer 0 must be exactly one root node; each child sits exactly one layer below its parent.
- Keep all valid content from the previous output; only repair what the validation errors name.

# Output Formatting
Return only the corrected JSON object, no commentary.
`

const NodeChatPrompt = `
# Task Context
You are a strategic management expert answering a follow-up question about one specific node of a knowledge graph. Ground your answer in the node context and the evidence passages; do not use outside knowledge.

# Background Data
## Node
%s

## Position in Graph
%s

## Evidence Passages
%s

# Detailed Task Description & Rules
- Answer the user's question specifically for this node, in the context of its position in the graph.
- Use only the provided node context and evidence passages. If they do not contain the answer, say so plainly.
- Provide two to three concrete illustrative examples when the evidence supports them; otherwise return an empty list.
- Suggest two to three short follow-up questions the user could ask next about this node.
- Respond in the same language as the question.

# Output Formatting
Return a single valid JSON object:
{
  "answer": "string",
  "examples": ["string"],
  "suggested_questions": ["string"]
}
No commentary outside of the JSON.
`

const NodeQuizPrompt = `
# Task Context
You are a strategic management tutor creating multiple-choice questions about one node of a knowledge graph.

# Background Data
## Node
%s

## Evidence Passages
%s

# Detailed Task Description & Rules
- Create exactly %d multiple-choice questions that test understanding of this node.
- Every question must be answerable from the node context and evidence passages alone.
- Each question has exactly 4 options with exactly one correct answer.
- The explanation states why the correct option is right, in one or two sentences.
- Vary difficulty: at least one recall question and at least one application or transfer question when the count allows.

# Output Formatting
Return a single valid JSON object:
{
  "questions": [
    {
      "question": "string",
      "options": ["string", "string", "string", "string"],
      "correct_index": 0,
      "explanation": "string"
    }
  ]
}
No commentary outside of the JSON.
`
