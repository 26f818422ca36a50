package amqp

import (
	"encoding/json"
	"time"
)

// RecordSyncMessage names a stored payment record to mirror. The worker
// reloads the record itself, so the message stays small.
type RecordSyncMessage struct {
	RecordID  int64     `json:"record_id"`
	StudentID string    `json:"student_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(recordID int64, studentID string) *RecordSyncMessage {
	return &RecordSyncMessage{
		RecordID:  recordID,
		StudentID: studentID,
		Timestamp: time.Now(),
	}
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
