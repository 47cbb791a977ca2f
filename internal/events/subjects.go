package events

const (
	// SubjectWorkItemUpdated is published by the work-tracking sync when an
	// item's attributes change; the rescorer subscribes to it.
	SubjectWorkItemUpdated = "qvf.workitem.updated"

	StreamName   = "QVF_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectSessionCreated(sessionID string) string   { return "qvf.session." + sessionID + ".created" }
func SubjectJudgmentsUpdated(sessionID string) string { return "qvf.session." + sessionID + ".judgments" }
func SubjectWeightsDerived(sessionID string) string   { return "qvf.session." + sessionID + ".derived" }
func SubjectWeightsAccepted(sessionID string) string  { return "qvf.session." + sessionID + ".accepted" }

func SubjectRunScored(runID string) string   { return "qvf.run." + runID + ".scored" }
func SubjectRunRescored(runID string) string { return "qvf.run." + runID + ".rescored" }
func SubjectRunStale(runID string) string    { return "qvf.run." + runID + ".stale" }
