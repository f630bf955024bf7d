package presence

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
)

var errPresence = errors.New("presence error")

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	return mock
}

func TestRecordLocation(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	bid := "b-1"
	mock.ExpectExec(`INSERT INTO user_locations`).
		WithArgs("staff-1", 12.97, 77.59, &bid).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	if err := svc.RecordLocation(context.Background(), "staff-1", 12.97, 77.59, "b-1"); err != nil {
		t.Fatalf("record location: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordLocationNoBooking(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO user_locations`).
		WithArgs("staff-1", 12.97, 77.59, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	if err := svc.RecordLocation(context.Background(), "staff-1", 12.97, 77.59, ""); err != nil {
		t.Fatalf("record location: %v", err)
	}
}

func TestRecordLocationError(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO user_locations`).
		WithArgs("staff-1", 12.97, 77.59, (*string)(nil)).
		WillReturnError(errPresence)

	svc := NewService(mock)
	if err := svc.RecordLocation(context.Background(), "staff-1", 12.97, 77.59, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSetOnline(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectExec(`UPDATE users SET is_online=\$2`).
		WithArgs("staff-1", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock)
	if err := svc.SetOnline(context.Background(), "staff-1", true); err != nil {
		t.Fatalf("set online: %v", err)
	}
}
