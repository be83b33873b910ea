package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestConfirm_CommitsReadyRows(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	batch := seedBatch(ctx, svc, st, []RawRow{
		goodRow("PAT-001"),
		goodRow("PAT-002"),
		goodRow("PAT-003"),
	})

	result, err := svc.Confirm(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Created != 3 || result.Skipped != 0 || len(result.Failures) != 0 {
		t.Fatalf("result = %+v, want 3 created", result)
	}

	got, err := svc.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.Status != BatchConfirmed {
		t.Errorf("batch status = %s, want confirmed", got.Status)
	}
	if got.Created+got.Skipped+got.Errored != got.RowCount {
		t.Errorf("counters %d+%d+%d do not cover %d rows",
			got.Created, got.Skipped, got.Errored, got.RowCount)
	}

	rows, _ := st.ListRows(ctx, batch.ID)
	for _, r := range rows {
		if r.Status != RowCreated {
			t.Errorf("row %d status = %s, want created", r.Index, r.Status)
		}
		if r.AssetID == "" {
			t.Errorf("row %d missing asset link", r.Index)
		}
	}
}

func TestConfirm_PartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	raw := make([]RawRow, 10)
	for i := range raw {
		raw[i] = goodRow(fmt.Sprintf("PAT-%03d", i))
	}
	batch := seedBatch(ctx, svc, st, raw)

	// Row with patrimony PAT-004 fails at the storage layer.
	st.failCreate["PAT-004"] = errors.New("connection reset by peer")

	result, err := svc.Confirm(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if result.Created != 9 {
		t.Errorf("Created = %d, want 9", result.Created)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %+v, want exactly one", result.Failures)
	}
	f := result.Failures[0]
	if f.RowIndex != 4 || f.Patrimony != "PAT-004" {
		t.Errorf("failure identity = %+v", f)
	}
	if f.Reason != "the database is unavailable, try confirming again later" {
		t.Errorf("failure reason = %q", f.Reason)
	}

	// The batch still reaches confirmed; one bad row never blocks the rest.
	got, _ := svc.GetBatch(ctx, batch.ID)
	if got.Status != BatchConfirmed {
		t.Errorf("batch status = %s, want confirmed", got.Status)
	}
	if got.Created+got.Skipped+got.Errored != got.RowCount {
		t.Errorf("counters do not cover all rows: %+v", got)
	}

	// The failed row keeps its pre-commit status.
	r, _ := st.GetRow(ctx, batch.ID, 4)
	if r.Status != RowReady {
		t.Errorf("failed row status = %s, want ready", r.Status)
	}
}

func TestConfirm_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	batch := seedBatch(ctx, svc, st, []RawRow{
		goodRow("PAT-001"),
		goodRow("PAT-002"),
	})

	first, err := svc.Confirm(ctx, batch.ID)
	if err != nil {
		t.Fatalf("first Confirm: %v", err)
	}
	callsAfterFirst := st.createCalls

	second, err := svc.Confirm(ctx, batch.ID)
	if err != nil {
		t.Fatalf("second Confirm: %v", err)
	}

	if st.createCalls != callsAfterFirst {
		t.Errorf("second Confirm attempted %d new asset creations", st.createCalls-callsAfterFirst)
	}
	if second.Created != first.Created || second.Skipped != first.Skipped ||
		len(second.Failures) != len(first.Failures) {
		t.Errorf("second result %+v differs from first %+v", second, first)
	}
}

func TestConfirm_SkipsNonReadyRows(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	unresolved := goodRow("PAT-002")
	unresolved.LocationText = "Sala Desconhecida XYZ"

	broken := goodRow("PAT-003")
	broken.Description = ""

	batch := seedBatch(ctx, svc, st, []RawRow{
		goodRow("PAT-001"),
		unresolved,
		broken,
	})

	result, err := svc.Confirm(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if result.Created != 1 {
		t.Errorf("Created = %d, want 1", result.Created)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (the unresolved row)", result.Skipped)
	}
	if len(result.Failures) != 0 {
		t.Errorf("Failures = %+v, want none", result.Failures)
	}

	got, _ := svc.GetBatch(ctx, batch.ID)
	if got.Errored != 1 {
		t.Errorf("Errored = %d, want 1", got.Errored)
	}

	// The pending row was never attempted.
	r, _ := st.GetRow(ctx, batch.ID, 1)
	if r.Status != RowPending {
		t.Errorf("unresolved row status = %s, want pending", r.Status)
	}
}

func TestConfirm_UnoverriddenDuplicateSkipped(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()
	st.seedAsset("PAT-001")

	batch := seedBatch(ctx, svc, st, []RawRow{
		goodRow("PAT-001"),
		goodRow("PAT-002"),
	})

	result, err := svc.Confirm(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Created != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 created / 1 skipped", result)
	}

	r, _ := st.GetRow(ctx, batch.ID, 0)
	if r.Status != RowDuplicate {
		t.Errorf("duplicate row status = %s, want duplicate", r.Status)
	}
}

func TestConfirm_InBatchKeyCollisionAtCommit(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	batch := seedBatch(ctx, svc, st, []RawRow{
		goodRow("PAT-001"),
		goodRow("PAT-001"),
	})

	// Force both rows ready: the operator overrode the duplicate flag.
	if _, err := svc.OverrideDuplicate(ctx, batch.ID, 1); err != nil {
		t.Fatalf("OverrideDuplicate: %v", err)
	}

	result, err := svc.Confirm(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// Only one asset may carry the key; the later row lands in failures.
	if result.Created != 1 {
		t.Errorf("Created = %d, want 1", result.Created)
	}
	if len(result.Failures) != 1 || result.Failures[0].RowIndex != 1 {
		t.Errorf("Failures = %+v, want row 1 rejected", result.Failures)
	}
}

func TestConfirm_TerminalBatchRejected(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	batch := seedBatch(ctx, svc, st, []RawRow{goodRow("PAT-001")})
	if err := svc.Cancel(ctx, batch.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := svc.Confirm(ctx, batch.ID); !errors.Is(err, ErrBatchTerminal) {
		t.Errorf("Confirm on cancelled batch = %v, want ErrBatchTerminal", err)
	}
}

func TestConfirm_UnknownBatch(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Confirm(context.Background(), "nope"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("err = %v, want ErrBatchNotFound", err)
	}
}

func TestConfirm_ConcurrentCallsCommitOnce(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	batch := seedBatch(ctx, svc, st, []RawRow{
		goodRow("PAT-001"),
		goodRow("PAT-002"),
	})

	results := make(chan *CommitResult, 2)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			r, err := svc.Confirm(ctx, batch.ID)
			results <- r
			errs <- err
		}()
	}

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if r := <-results; r.Created != 2 {
			t.Errorf("Created = %d, want 2", r.Created)
		}
	}

	if st.createCalls != 2 {
		t.Errorf("asset creations = %d, want exactly 2", st.createCalls)
	}
}
