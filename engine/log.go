package engine

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// log is the package-level structured logger. Callers that want their
// own sink can swap it with SetLogger; by default it writes nowhere
// interesting beyond logrus's standard logger.
var log = logrus.StandardLogger()

// SetLogger replaces the logger used for engine-internal diagnostics:
// mkfs/open lifecycle events and every mutating Disk call (tag and
// file create/apply/remove/delete). It applies to disks returned by
// later Mkfs/MkfsWithRoot/Open calls; a Disk keeps the log entry it
// was created with. Passing nil restores the standard logger.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		log = logrus.StandardLogger()
		return
	}
	log = l
}

// sessionEntry returns a log entry tagged with a fresh session
// correlation id, used to group the log lines emitted by a single
// mkfs/open call together.
func sessionEntry() *logrus.Entry {
	return log.WithField("session", uuid.New().String())
}
