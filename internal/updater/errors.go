package updater

import "errors"

// ErrNoInitialRelease is returned when the loop starts and the chain
// has no CurrentClientRelease published. Absence on subsequent polls is
// "no change"; absence at first start is fatal.
var ErrNoInitialRelease = errors.New("updater: no current release published at startup")

// ErrAutoUpdaterTerminated is returned by the shutdown coordinator when
// the update loop exits on its own — it is not supposed to.
var ErrAutoUpdaterTerminated = errors.New("updater: auto updater terminated unexpectedly")
