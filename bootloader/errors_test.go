package bootloader

import (
	"errors"
	"strings"
	"testing"
)

func TestHandoffError(t *testing.T) {
	err := error(&HandoffError{Address: 0x00002000})

	if !strings.Contains(err.Error(), "0x00002000") {
		t.Errorf("error message should contain address, got: %s", err.Error())
	}

	if !errors.Is(err, ErrRun) {
		t.Error("HandoffError should match ErrRun")
	}

	if errors.Is(err, ErrReset) {
		t.Error("HandoffError should not match ErrReset")
	}
}

func TestTransferState(t *testing.T) {
	st := NewTransferState()

	if st.TransferAddress != NoTransfer {
		t.Errorf("TransferAddress = 0x%08X, want 0x%08X", st.TransferAddress, NoTransfer)
	}
	if st.TransferSize != 0 {
		t.Errorf("TransferSize = %d, want 0", st.TransferSize)
	}
	if !st.Idle() {
		t.Error("new state should be idle")
	}

	st.TransferAddress = 0x2000
	st.TransferSize = 4
	if !st.Downloading() {
		t.Error("state with cursor and size should be downloading")
	}

	st.abort()
	if st.Downloading() || st.TransferAddress != NoTransfer {
		t.Error("abort should return to idle")
	}
}
