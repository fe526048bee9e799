package tasks

const (
	QUEUE_NAME = "tipjar_queue"

	TypeRecordReceipt = "receipt:record"
)
