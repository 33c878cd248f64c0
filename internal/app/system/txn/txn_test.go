package txn

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "generic error",
			err:  errors.New("some random error"),
			want: false,
		},
		{
			name: "command error code 20",
			err:  mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"},
			want: true,
		},
		{
			name: "command error code 51",
			err:  mongo.CommandError{Code: 51, Message: "Illegal operation"},
			want: true,
		},
		{
			name: "command error code 263",
			err:  mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"},
			want: true,
		},
		{
			name: "other command error code",
			err:  mongo.CommandError{Code: 100, Message: "Some other error"},
			want: false,
		},
		{
			name: "replica set required message",
			err:  errors.New("(IllegalOperation) Transaction numbers are only allowed on a replica set member or mongos"),
			want: true,
		},
		{
			name: "topology without sessions",
			err:  errors.New("current topology does not support sessions"),
			want: true,
		},
		{
			name: "sessions not supported",
			err:  errors.New("sessions are not supported by the MongoDB cluster"),
			want: true,
		},
		{
			name: "error with only one keyword",
			err:  errors.New("transaction failed"),
			want: false,
		},
		{
			name: "aborted transaction mentioning session",
			err:  errors.New("cannot start transaction in current session state"),
			want: false,
		},
		{
			name: "write conflict inside transaction",
			err:  mongo.CommandError{Code: 112, Message: "WriteConflict error: this operation conflicted with another operation in this transaction session", Labels: []string{"TransientTransactionError"}},
			want: false,
		},
		{
			name: "replica set mentioned without transactions",
			err:  errors.New("no primary in replica set"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotSupported(tt.err)
			if got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNotSupported_CaseInsensitive(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "uppercase replica set message",
			err:  errors.New("TRANSACTION NUMBERS ARE ONLY ALLOWED ON A REPLICA SET MEMBER"),
			want: true,
		},
		{
			name: "mixed case Transaction and Session",
			err:  errors.New("Transaction Session error"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotSupported(tt.err)
			if got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNotSupported_Wrapped(t *testing.T) {
	err := fmt.Errorf("add role: %w", mongo.CommandError{Code: 20, Message: "x"})
	if !IsNotSupported(err) {
		t.Error("expected wrapped CommandError to be detected")
	}
}
