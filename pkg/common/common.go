package common

import "time"

// Graph is a layered knowledge graph synthesized for a single query. The
// hierarchy is fixed after synthesis; later filter operations only adjust
// relevance values and connection visibility, never the parent/child
// structure.
//
// A graph contains:
//   - Nodes: keyed by node id, layer 0 is the single root
//   - Connections: a non-hierarchical overlay of cross-links
//   - Profile: the context profile the graph was scored against
type Graph struct {
	ID          string                `json:"id"`
	QueryID     string                `json:"query_id"`
	RootID      string                `json:"root_id"`
	Nodes       map[string]*GraphNode `json:"nodes"`
	Connections []Connection          `json:"connections"`
	Profile     ContextProfile        `json:"profile"`
	CreatedAt   time.Time             `json:"created_at"`
}

// GraphNode is a single node in the hierarchy. Layer 0 is the central topic,
// layer 1 the core dimensions, layers 2-4 refine progressively. Every
// non-root node has exactly one parent and layer(child) = layer(parent)+1.
//
// Relevance is in [0,10] with one decimal of precision and is always set.
// Children are ordered by descending relevance, ties kept in declaration
// order.
type GraphNode struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Layer       int     `json:"layer"`
	Relevance   float64 `json:"relevance"`
	// BaseRelevance is the synthesis-time score the context scorer always
	// starts from, so rescoring with the same profile is idempotent.
	BaseRelevance float64  `json:"base_relevance"`
	ParentID      string   `json:"parent_id,omitempty"`
	Children      []string `json:"children"`
	Tags          []string `json:"tags,omitempty"`
	Citations     []string `json:"citations,omitempty"`
}

// Connection is an undirected cross-link between two nodes of the same
// graph. Both node ids must exist in the graph's node map. Connections are
// an overlay, not part of the hierarchy.
type Connection struct {
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Label    string  `json:"label"`
	Strength float64 `json:"strength"`
}

// EvidenceChunk is a retrieved passage of source-document text with the
// similarity score the vector index assigned to it. Evidence sets are
// ordered by descending score with near-identical texts collapsed.
type EvidenceChunk struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Dimension is one normalized context dimension: an enumerated category plus
// a weight in [0,1]. A weight of 0 means the dimension has no influence on
// relevance scoring.
type Dimension struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// ContextProfile is the normalized organizational context a query was asked
// under. It is immutable once built for a given query; filter requests build
// a fresh profile instead of mutating the stored one.
type ContextProfile struct {
	CompanySize       Dimension `json:"company_size"`
	CompanyMaturity   Dimension `json:"company_maturity"`
	Industry          Dimension `json:"industry"`
	ManagementRole    Dimension `json:"management_role"`
	ChallengeType     Dimension `json:"challenge_type"`
	Timeframe         Dimension `json:"timeframe"`
	Complexity        Dimension `json:"complexity"`
	MarketVolatility  Dimension `json:"market_volatility"`
	TechIntensity     Dimension `json:"tech_intensity"`
	RegulatoryDensity Dimension `json:"regulatory_density"`
	GlobalOrientation Dimension `json:"global_orientation"`
}

// Dimensions returns the profile's dimensions paired with their names, in a
// fixed order. The order is part of the scoring and serialization contract.
func (p ContextProfile) Dimensions() []NamedDimension {
	return []NamedDimension{
		{"company_size", p.CompanySize},
		{"company_maturity", p.CompanyMaturity},
		{"industry", p.Industry},
		{"management_role", p.ManagementRole},
		{"challenge_type", p.ChallengeType},
		{"timeframe", p.Timeframe},
		{"complexity", p.Complexity},
		{"market_volatility", p.MarketVolatility},
		{"tech_intensity", p.TechIntensity},
		{"regulatory_density", p.RegulatoryDensity},
		{"global_orientation", p.GlobalOrientation},
	}
}

// NamedDimension pairs a dimension with its profile field name.
type NamedDimension struct {
	Name      string
	Dimension Dimension
}

// Job status values. Transitions are one-directional: pending may move to
// processing or cancelled, processing ends in completed or failed, terminal
// states never revert.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// QueryJob is the asynchronous unit of work for one submitted query. Exactly
// one worker processes a job; the claim is an atomic conditional update in
// the store.
type QueryJob struct {
	ID         string            `json:"id"`
	QueryText  string            `json:"query_text"`
	DocumentID string            `json:"document_id"`
	RawContext map[string]string `json:"raw_context"`
	Status     string            `json:"status"`
	GraphID    string            `json:"graph_id,omitempty"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Document status values for the ingest lifecycle.
const (
	DocumentStatusPending = "pending"
	DocumentStatusReady   = "ready"
	DocumentStatusFailed  = "failed"
)

// Document is an uploaded source text. The raw text is archived to object
// storage; chunking and embedding happen asynchronously and flip the status
// to ready or failed.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is one token-bounded segment of a document, stored alongside its
// embedding vector.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

// ChatTurn is a single prior exchange in a node chat conversation.
type ChatTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
