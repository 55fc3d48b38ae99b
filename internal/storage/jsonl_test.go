package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"coinwatch/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "transfers.jsonl")
	sink := NewJsonlStorage(path)

	first := model.TransferRecord{TxHash: "0x01", Amount: "100", SenderBalance: "400", ReceiverBalance: "600"}
	second := model.TransferRecord{TxHash: "0x02", Amount: "5", SenderBalance: "395", ReceiverBalance: "605"}

	if err := sink.PutTransfers(context.Background(), []model.TransferRecord{first}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := sink.PutTransfers(context.Background(), []model.TransferRecord{second}); err != nil {
		t.Fatalf("second put: %v", err)
	}
	if err := sink.PutTransfers(context.Background(), nil); err != nil {
		t.Fatalf("empty put: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var got []model.TransferRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.TransferRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != 2 || got[0].TxHash != "0x01" || got[1].TxHash != "0x02" {
		t.Fatalf("unexpected records: %+v", got)
	}
}
