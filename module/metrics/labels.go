package metrics

const (
	namespaceAggregator = "aggregator"

	subsystemQuorum   = "quorum"
	subsystemEpoch    = "epoch"
	subsystemConflict = "conflict"
)

const (
	LabelPhase = "phase"
	LabelKind  = "kind"
)

const (
	PhaseVotes   = "votes"
	PhaseEffects = "effects"

	ConflictVotes        = "votes"
	ConflictEffects      = "effects"
	ConflictEquivocation = "equivocation"
)
