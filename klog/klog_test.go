package klog_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/MORK-core/mork-syscall/klog"
	"github.com/MORK-core/mork-syscall/syscallabi"
)

func TestRejectedLogsComponentLabelAndResponse(t *testing.T) {
	var buf bytes.Buffer
	klog.Log.SetOutput(&buf)
	klog.Log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	defer klog.Log.SetOutput(nil)

	klog.Rejected("cspace", syscallabi.CNodeAlloc, syscallabi.NotEnoughSpace, nil)

	out := buf.String()
	assert.Contains(t, out, "component=cspace")
	assert.Contains(t, out, "invocation rejected")
	assert.Contains(t, out, "NotEnoughSpace")
}

func TestRejectedIncludesExtraFields(t *testing.T) {
	var buf bytes.Buffer
	klog.Log.SetOutput(&buf)
	klog.Log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	defer klog.Log.SetOutput(nil)

	klog.Rejected("memory", syscallabi.PageMap, syscallabi.InvalidParam, logrus.Fields{"slot": 20})

	assert.Contains(t, buf.String(), "slot=20")
}
