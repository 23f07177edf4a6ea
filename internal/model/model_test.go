package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInquiryStatusValid(t *testing.T) {
	for _, st := range []InquiryStatus{InquiryStatusNew, InquiryStatusContacted, InquiryStatusConverted, InquiryStatusRejected} {
		assert.True(t, st.Valid(), st)
	}
	assert.False(t, InquiryStatus("archived").Valid())
	assert.False(t, InquiryStatus("New").Valid())
	assert.False(t, InquiryStatus("").Valid())
}

func TestOrderStatusSteps(t *testing.T) {
	assert.Equal(t, 0, OrderStatusPending.Step())
	assert.Equal(t, 5, OrderStatusDelivered.Step())
	assert.Equal(t, -1, OrderStatusCancelled.Step())
	assert.True(t, OrderStatusCancelled.Valid())
	assert.False(t, OrderStatus("lost").Valid())
	assert.True(t, OrderStatusQualityCheck.Active())
	assert.False(t, OrderStatusDelivered.Active())
}

func TestTimestampsSortLexically(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := FormatTimestamp(base)
	b := FormatTimestamp(base.Add(10 * time.Microsecond))
	c := FormatTimestamp(base.Add(time.Second))

	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.True(t, ParseTimestamp(b).Equal(base.Add(10*time.Microsecond)))
	assert.True(t, ParseTimestamp("garbage").IsZero())
}

func TestMessageLessTieBreaksOnID(t *testing.T) {
	at := FormatTimestamp(time.Now())
	assert.True(t, MessageLess(MessageItem{ID: "a", CreatedAt: at}, MessageItem{ID: "b", CreatedAt: at}))
	assert.False(t, MessageLess(MessageItem{ID: "b", CreatedAt: at}, MessageItem{ID: "a", CreatedAt: at}))
}
