package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"Web3-Scaffold/internal/deployments"
	xerrors "Web3-Scaffold/internal/errors"
)

const (
	selectDeploymentSQL = `SELECT network, contract, deployed_to, deployer, transaction_hash, block_number
    FROM contract_deployments WHERE network = ? AND contract = ?`
	listDeploymentsSQL = `SELECT network, contract, deployed_to, deployer, transaction_hash, block_number
    FROM contract_deployments ORDER BY network, contract`
	upsertDeploymentSQL = `INSERT INTO contract_deployments
    (network, contract, deployed_to, deployer, transaction_hash, block_number, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE deployed_to = VALUES(deployed_to), deployer = VALUES(deployer),
    transaction_hash = VALUES(transaction_hash), block_number = VALUES(block_number), updated_at = VALUES(updated_at)`
)

// DeploymentStore 在 MySQL 中保存合约部署记录，实现 deployments.Source。
type DeploymentStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewDeploymentStore 打开连接池并执行内嵌迁移。
func NewDeploymentStore(ctx context.Context, cfg Config) (*DeploymentStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := &DeploymentStore{db: db, now: time.Now}
	if err := store.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close 释放连接池。
func (s *DeploymentStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup implements deployments.Source.
func (s *DeploymentStore) Lookup(ctx context.Context, network, contract string) (deployments.Record, error) {
	row := s.db.QueryRowContext(ctx, selectDeploymentSQL, strings.TrimSpace(network), strings.TrimSpace(contract))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deployments.Record{}, xerrors.Wrap(xerrors.CodeNotFound, deployments.ErrNotFound,
				fmt.Sprintf("未找到部署记录 %s/%s", network, contract))
		}
		return deployments.Record{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询部署记录失败")
	}
	if err := rec.Validate(); err != nil {
		return deployments.Record{}, err
	}
	return rec, nil
}

// Save 写入或覆盖 (network, contract) 对应的部署记录。
func (s *DeploymentStore) Save(ctx context.Context, rec deployments.Record) error {
	if rec.Network == "" || rec.Contract == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "部署记录缺少 network 或 contract")
	}
	addr, err := rec.Address()
	if err != nil {
		return err
	}
	now := s.clock().Unix()
	if _, err := s.db.ExecContext(ctx, upsertDeploymentSQL,
		rec.Network, rec.Contract, addr.Hex(), rec.Deployer, rec.TransactionHash, rec.BlockNumber, now, now); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存部署记录失败")
	}
	return nil
}

// List 返回全部部署记录，按网络与合约名排序。
func (s *DeploymentStore) List(ctx context.Context) ([]deployments.Record, error) {
	rows, err := s.db.QueryContext(ctx, listDeploymentsSQL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询部署记录失败")
	}
	defer rows.Close()

	var records []deployments.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析部署记录失败")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历部署记录失败")
	}
	return records, nil
}

func (s *DeploymentStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (deployments.Record, error) {
	var rec deployments.Record
	err := row.Scan(&rec.Network, &rec.Contract, &rec.DeployedTo, &rec.Deployer, &rec.TransactionHash, &rec.BlockNumber)
	return rec, err
}

var _ deployments.Store = (*DeploymentStore)(nil)
