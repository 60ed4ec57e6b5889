package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const transactionColumns = `id, amount, item, category, remarks, paid_by, date, user_id, group_id, created_at`

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.Amount, &i.Item, &i.Category, &i.Remarks, &i.PaidBy,
			&i.Date, &i.UserID, &i.GroupID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.Amount, arg.Item, arg.Category, arg.Remarks, arg.PaidBy,
		arg.Date, arg.UserID, arg.GroupID, arg.CreatedAt)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(&i.ID, &i.Amount, &i.Item, &i.Category, &i.Remarks, &i.PaidBy,
		&i.Date, &i.UserID, &i.GroupID, &i.CreatedAt)
	return i, err
}

const updateTransaction = `UPDATE transactions
SET amount = ?, item = ?, category = ?, remarks = ?, paid_by = ?, date = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Amount, arg.Item, arg.Category, arg.Remarks, arg.PaidBy, arg.Date, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteGroupTransactions = `DELETE FROM transactions WHERE group_id = ?`

func (q *Queries) DeleteGroupTransactions(ctx context.Context, groupID string) error {
	_, err := q.db.ExecContext(ctx, deleteGroupTransactions, groupID)
	return err
}

// Undated records count as dated at the window start, so they are always in.
const fetchPersonalTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ? AND (group_id IS NULL OR group_id = '')
  AND (date IS NULL OR (date >= ? AND date <= ?))
ORDER BY date DESC, created_at DESC`

func (q *Queries) FetchPersonalTransactions(ctx context.Context, userID, start, end string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, fetchPersonalTransactions, userID, start, end)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const fetchGroupTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE group_id = ?
  AND (date IS NULL OR (date >= ? AND date <= ?))
ORDER BY date DESC, created_at DESC`

func (q *Queries) FetchGroupTransactions(ctx context.Context, groupID, start, end string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, fetchGroupTransactions, groupID, start, end)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listRecentPersonal = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ? AND (group_id IS NULL OR group_id = '')
ORDER BY created_at DESC
LIMIT ?`

func (q *Queries) ListRecentPersonal(ctx context.Context, userID string, limit int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecentPersonal, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listRecentGroup = `SELECT ` + transactionColumns + ` FROM transactions
WHERE group_id = ?
ORDER BY created_at DESC
LIMIT ?`

func (q *Queries) ListRecentGroup(ctx context.Context, groupID string, limit int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecentGroup, groupID, limit)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listPersonalOwners = `SELECT DISTINCT user_id FROM transactions
WHERE group_id IS NULL OR group_id = ''
ORDER BY user_id`

func (q *Queries) ListPersonalOwners(ctx context.Context) ([]string, error) {
	return q.queryStrings(ctx, listPersonalOwners)
}

func (q *Queries) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const createGroup = `INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateGroup(ctx context.Context, arg Group) error {
	_, err := q.db.ExecContext(ctx, createGroup, arg.ID, arg.Name, arg.CreatedBy, arg.CreatedAt)
	return err
}

const getGroup = `SELECT id, name, created_by, created_at FROM groups WHERE id = ?`

func (q *Queries) GetGroup(ctx context.Context, id string) (Group, error) {
	var i Group
	err := q.db.QueryRowContext(ctx, getGroup, id).Scan(&i.ID, &i.Name, &i.CreatedBy, &i.CreatedAt)
	return i, err
}

func scanGroups(rows *sql.Rows) ([]Group, error) {
	defer rows.Close()
	var items []Group
	for rows.Next() {
		var i Group
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedBy, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listGroupsForUser = `SELECT g.id, g.name, g.created_by, g.created_at
FROM groups g
JOIN group_members m ON m.group_id = g.id
WHERE m.user_id = ?
ORDER BY g.created_at, g.id`

func (q *Queries) ListGroupsForUser(ctx context.Context, userID string) ([]Group, error) {
	rows, err := q.db.QueryContext(ctx, listGroupsForUser, userID)
	if err != nil {
		return nil, err
	}
	return scanGroups(rows)
}

const listGroups = `SELECT id, name, created_by, created_at FROM groups ORDER BY created_at, id`

func (q *Queries) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := q.db.QueryContext(ctx, listGroups)
	if err != nil {
		return nil, err
	}
	return scanGroups(rows)
}

const deleteGroup = `DELETE FROM groups WHERE id = ?`

func (q *Queries) DeleteGroup(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGroup, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const addMember = `INSERT INTO group_members (group_id, user_id, email, joined_at) VALUES (?, ?, ?, ?)`

func (q *Queries) AddMember(ctx context.Context, arg GroupMember) error {
	_, err := q.db.ExecContext(ctx, addMember, arg.GroupID, arg.UserID, arg.Email, arg.JoinedAt)
	return err
}

const removeMember = `DELETE FROM group_members WHERE group_id = ? AND user_id = ?`

func (q *Queries) RemoveMember(ctx context.Context, groupID, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, removeMember, groupID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteGroupMembers = `DELETE FROM group_members WHERE group_id = ?`

func (q *Queries) DeleteGroupMembers(ctx context.Context, groupID string) error {
	_, err := q.db.ExecContext(ctx, deleteGroupMembers, groupID)
	return err
}

const listMembers = `SELECT group_id, user_id, email, joined_at FROM group_members
WHERE group_id = ?
ORDER BY joined_at, user_id`

func (q *Queries) ListMembers(ctx context.Context, groupID string) ([]GroupMember, error) {
	rows, err := q.db.QueryContext(ctx, listMembers, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GroupMember
	for rows.Next() {
		var i GroupMember
		if err := rows.Scan(&i.GroupID, &i.UserID, &i.Email, &i.JoinedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countMember = `SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?`

func (q *Queries) CountMember(ctx context.Context, groupID, userID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countMember, groupID, userID).Scan(&n)
	return n, err
}

const invitationColumns = `id, group_id, group_name, invited_email, invited_by, status, created_at`

const createInvitation = `INSERT INTO group_invitations (` + invitationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateInvitation(ctx context.Context, arg GroupInvitation) error {
	_, err := q.db.ExecContext(ctx, createInvitation, arg.ID, arg.GroupID, arg.GroupName,
		arg.InvitedEmail, arg.InvitedBy, arg.Status, arg.CreatedAt)
	return err
}

const getInvitation = `SELECT ` + invitationColumns + ` FROM group_invitations WHERE id = ?`

func (q *Queries) GetInvitation(ctx context.Context, id string) (GroupInvitation, error) {
	var i GroupInvitation
	err := q.db.QueryRowContext(ctx, getInvitation, id).Scan(&i.ID, &i.GroupID, &i.GroupName,
		&i.InvitedEmail, &i.InvitedBy, &i.Status, &i.CreatedAt)
	return i, err
}

const listPendingInvitations = `SELECT ` + invitationColumns + ` FROM group_invitations
WHERE invited_email = ? AND status = 'pending'
ORDER BY created_at DESC`

func (q *Queries) ListPendingInvitations(ctx context.Context, email string) ([]GroupInvitation, error) {
	rows, err := q.db.QueryContext(ctx, listPendingInvitations, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GroupInvitation
	for rows.Next() {
		var i GroupInvitation
		if err := rows.Scan(&i.ID, &i.GroupID, &i.GroupName, &i.InvitedEmail, &i.InvitedBy,
			&i.Status, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const setInvitationStatus = `UPDATE group_invitations SET status = ? WHERE id = ?`

func (q *Queries) SetInvitationStatus(ctx context.Context, id, status string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setInvitationStatus, status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteGroupInvitations = `DELETE FROM group_invitations WHERE group_id = ?`

func (q *Queries) DeleteGroupInvitations(ctx context.Context, groupID string) error {
	_, err := q.db.ExecContext(ctx, deleteGroupInvitations, groupID)
	return err
}

const upsertArchive = `INSERT INTO analytics_archives (scope_key, period, snapshot, archived_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (scope_key, period) DO UPDATE SET snapshot = excluded.snapshot, archived_at = excluded.archived_at`

func (q *Queries) UpsertArchive(ctx context.Context, arg AnalyticsArchive) error {
	_, err := q.db.ExecContext(ctx, upsertArchive, arg.ScopeKey, arg.Period, arg.Snapshot, arg.ArchivedAt)
	return err
}

const listArchives = `SELECT scope_key, period, snapshot, archived_at FROM analytics_archives
WHERE scope_key = ?
ORDER BY period DESC`

func (q *Queries) ListArchives(ctx context.Context, scopeKey string) ([]AnalyticsArchive, error) {
	rows, err := q.db.QueryContext(ctx, listArchives, scopeKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AnalyticsArchive
	for rows.Next() {
		var i AnalyticsArchive
		if err := rows.Scan(&i.ScopeKey, &i.Period, &i.Snapshot, &i.ArchivedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
