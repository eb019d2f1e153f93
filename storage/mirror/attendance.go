package mirror

import (
	"context"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/attendance"
)

type attendanceDoc struct {
	ID        string `json:"id" firestore:"id"`
	ClassID   string `json:"classId" firestore:"classId"`
	UserID    string `json:"userId" firestore:"userId"`
	UserName  string `json:"userName" firestore:"userName"`
	Date      string `json:"date" firestore:"date"`
	IsPresent bool   `json:"isPresent" firestore:"isPresent"`
}

func toAttendance(id string, d attendanceDoc) attendance.Attendance {
	att := attendance.Attendance(d)
	att.ID = id
	return att
}

type attendanceRepository struct {
	store *Store
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(store *Store) attendance.Repository {
	return &attendanceRepository{store: store}
}

func (repo *attendanceRepository) QueryAllAttendances() []attendance.Attendance {
	return list(repo.store, core.CollAttendances, toAttendance)
}

// SaveAttendance shows the toggle at once; the remote write is reconciled by the next snapshot.
func (repo *attendanceRepository) SaveAttendance(ctx context.Context, att attendance.Attendance) error {
	return repo.store.SetLocal(ctx, core.CollAttendances, att.ID, attendanceDoc(att))
}
