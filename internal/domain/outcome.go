package domain

// Outcome is the externally observable result of one submission.
type Outcome string

const (
	// OutcomeSaved means the bookmark is durable in the remote log.
	OutcomeSaved Outcome = "saved"
	// OutcomeQueued means persistence failed and the bookmark now waits in
	// the retry queue for the next sweep.
	OutcomeQueued Outcome = "queued"
	// OutcomeIgnored means the message carried no usable URL and had no
	// side effects.
	OutcomeIgnored Outcome = "ignored"
)
