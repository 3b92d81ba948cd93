package policies

import "context"

// ReceiptArchive stores rendered receipts for later download.
type ReceiptArchive interface {
	PutReceipt(ctx context.Context, key string, body []byte) (string, error)
}
