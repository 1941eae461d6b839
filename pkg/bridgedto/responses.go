package bridgedto

type Score struct {
	CP   *int `json:"cp,omitempty"`
	Mate *int `json:"mate,omitempty"`
}

type Info struct {
	Depth    int      `json:"depth"`
	SelDepth int      `json:"seldepth,omitempty"`
	MultiPV  int      `json:"multipv"`
	Nodes    int64    `json:"nodes,omitempty"`
	Score    *Score   `json:"score,omitempty"`
	PV       []string `json:"pv,omitempty"`
}

type BookMove struct {
	Move   string `json:"move"`
	Weight int    `json:"weight"`
}

type Strength struct {
	Rating        int    `json:"rating"`
	Tier          string `json:"tier"`
	Skill         int    `json:"skill"`
	Threads       int    `json:"threads"`
	HashMB        int    `json:"hash_mb"`
	LimitStrength bool   `json:"limit_strength"`
	MoveTimeMs    int    `json:"movetime_ms"`
}

type Option struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
	Min     *int   `json:"min,omitempty"`
	Max     *int   `json:"max,omitempty"`
}

type Capabilities struct {
	EngineName      string             `json:"engine_name"`
	EngineAuthor    string             `json:"engine_author"`
	Options         []Option           `json:"options"`
	EloMin          int                `json:"elo_min"`
	EloMax          int                `json:"elo_max"`
	MaxMultiPV      int                `json:"max_multipv"`
	Book            bool               `json:"book"`
	BookSources     []string           `json:"book_sources,omitempty"`
	BookMaxFullMove int                `json:"book_max_fullmove,omitempty"`
	StyleGroups     int                `json:"style_groups"`
	Presets         []string           `json:"presets"`
	State           string             `json:"state"`
	Strength        *Strength          `json:"strength,omitempty"`
	Calibration     []CalibrationPoint `json:"calibration"`
}

type AnalyzeResponse struct {
	ID             string     `json:"id"`
	Move           string     `json:"move"`
	SAN            string     `json:"san,omitempty"`
	Ponder         string     `json:"ponder,omitempty"`
	EngineMove     string     `json:"engine_move,omitempty"`
	Score          *Score     `json:"score,omitempty"`
	Depth          int        `json:"depth,omitempty"`
	Infos          []Info     `json:"infos,omitempty"`
	Book           bool       `json:"book"`
	BookCandidates []BookMove `json:"book_candidates,omitempty"`
	Humanized      bool       `json:"humanized"`
	HumanStage     string     `json:"human_stage,omitempty"`
	LossCP         int        `json:"loss_cp,omitempty"`
	Cached         bool       `json:"cached"`
	ForcedStop     bool       `json:"forced_stop,omitempty"`
	Rating         int        `json:"rating,omitempty"`
	DurationMs     int64      `json:"duration_ms"`
}

type ReviewPosition struct {
	Index     int      `json:"index"`
	FEN       string   `json:"fen"`
	BestMove  string   `json:"best_move,omitempty"`
	SAN       string   `json:"san,omitempty"`
	Score     *Score   `json:"score,omitempty"`
	Depth     int      `json:"depth,omitempty"`
	PV        []string `json:"pv,omitempty"`
	Magnitude int      `json:"magnitude"`
	Deep      bool     `json:"deep"`
	Error     string   `json:"error,omitempty"`
}

type ReviewResponse struct {
	ID         string           `json:"id"`
	Positions  []ReviewPosition `json:"positions"`
	Deepened   []int            `json:"deepened"`
	DurationMs int64            `json:"duration_ms"`
}

type StyleGroup struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type OpeningResponse struct {
	FEN        string       `json:"fen"`
	Key        string       `json:"key"`
	FullMove   int          `json:"fullmove"`
	Found      bool         `json:"found"`
	ECO        string       `json:"eco,omitempty"`
	Title      string       `json:"title,omitempty"`
	Styles     []StyleGroup `json:"styles,omitempty"`
	InBook     bool         `json:"in_book"`
	Candidates []BookMove   `json:"candidates,omitempty"`
}

type QuitResponse struct {
	Stopped bool `json:"stopped"`
}

type CalibrationPoint struct {
	Rating     int `json:"rating"`
	MoveTimeMs int `json:"movetime_ms"`
}
