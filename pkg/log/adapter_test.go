package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerLogrusAdapter_RoutesLevels(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	adapter := NewBadgerLogrusAdapter(logrus.NewEntry(logger))

	adapter.Errorf("compaction failed: %s", "disk full")
	adapter.Warningf("value log at %d%%", 90)
	adapter.Infof("db opened")
	adapter.Debugf("flushing memtable")

	entries := hook.AllEntries()
	require.Len(t, entries, 4)
	assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
	assert.Equal(t, "compaction failed: disk full", entries[0].Message)
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, logrus.InfoLevel, entries[2].Level)
	assert.Equal(t, logrus.DebugLevel, entries[3].Level)
}

func TestBadgerLogrusAdapter_KeepsEntryFields(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	adapter := NewBadgerLogrusAdapter(logrus.NewEntry(logger).WithField("component", "badgerdb"))

	adapter.Errorf("txn conflict")

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "badgerdb", hook.LastEntry().Data["component"])
}
