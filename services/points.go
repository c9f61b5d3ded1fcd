package services

import (
	"errors"
	"log"

	"github.com/CMoments/Online-life/models"

	"gorm.io/gorm"
)

// PointsService is the append-only points ledger. Every mutation locks the
// payer's account row, writes a ledger entry carrying the balance before and
// after, and updates the materialized balance in the same transaction.
type PointsService struct {
	DB *gorm.DB
}

func (s *PointsService) GetBalance(userID uint) (int64, error) {
	var account models.PointsAccount
	if err := s.DB.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// AddPoints credits points to a user. orderID, when non-nil, ties the entry
// to the order that produced it.
func (s *PointsService) AddPoints(userID uint, amount int64, txType models.PointsTxType, reason string, orderID *uint) error {
	if amount <= 0 {
		return &ValidationError{Field: "points", Reason: "must be greater than zero"}
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return creditPoints(tx, userID, amount, txType, reason, orderID)
	})
}

// DeductPoints debits points from a user, failing with
// InsufficientBalanceError when the balance does not cover the amount.
func (s *PointsService) DeductPoints(userID uint, amount int64, txType models.PointsTxType, reason string, orderID *uint) error {
	if amount <= 0 {
		return &ValidationError{Field: "points", Reason: "must be greater than zero"}
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return debitPoints(tx, userID, amount, txType, reason, orderID)
	})
}

// TransferPoints moves points between two users atomically, writing a
// TRANSFER_OUT entry for the sender and a TRANSFER_IN entry for the receiver.
func (s *PointsService) TransferPoints(fromID, toID uint, amount int64, message string) error {
	if amount <= 0 {
		return &ValidationError{Field: "points", Reason: "must be greater than zero"}
	}
	if fromID == toID {
		return &ValidationError{Field: "target_user_id", Reason: "cannot transfer to yourself"}
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := debitPoints(tx, fromID, amount, models.PointsTransferOut, "transfer to user: "+message, nil); err != nil {
			return err
		}
		return creditPoints(tx, toID, amount, models.PointsTransferIn, "transfer from user: "+message, nil)
	})
}

// GetHistory returns a user's ledger entries, newest first.
func (s *PointsService) GetHistory(userID uint, page, perPage int) ([]models.PointsEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	var total int64
	if err := s.DB.Model(&models.PointsEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.PointsEntry
	err := s.DB.Where("user_id = ?", userID).
		Order("id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&entries).Error
	return entries, total, err
}

type RankingEntry struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Balance  int64  `json:"points"`
}

// GetRanking lists the top balances joined with user names.
func (s *PointsService) GetRanking(limit int) ([]RankingEntry, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var rows []struct {
		UserID  uint
		Name    string
		Balance int64
	}
	err := s.DB.Model(&models.PointsAccount{}).
		Select("points_accounts.user_id, users.name, points_accounts.balance").
		Joins("JOIN users ON users.id = points_accounts.user_id").
		Order("points_accounts.balance DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ranking := make([]RankingEntry, 0, len(rows))
	for i, row := range rows {
		ranking = append(ranking, RankingEntry{
			Rank:     i + 1,
			UserID:   row.UserID,
			Username: row.Name,
			Balance:  row.Balance,
		})
	}
	return ranking, nil
}

// lockAccount fetches the account row under FOR UPDATE, creating it first if
// the user has never held points.
func lockAccount(tx *gorm.DB, userID uint) (*models.PointsAccount, error) {
	var account models.PointsAccount
	err := lockForUpdate(tx).Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.PointsAccount{UserID: userID, Balance: 0}
		if err := tx.Create(&account).Error; err != nil {
			return nil, err
		}
		err = lockForUpdate(tx).Where("user_id = ?", userID).First(&account).Error
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func creditPoints(tx *gorm.DB, userID uint, amount int64, txType models.PointsTxType, reason string, orderID *uint) error {
	account, err := lockAccount(tx, userID)
	if err != nil {
		return err
	}
	before := account.Balance
	after := before + amount
	if err := tx.Model(account).Update("balance", after).Error; err != nil {
		return err
	}
	entry := models.PointsEntry{
		UserID:        userID,
		Change:        amount,
		TxType:        txType,
		Reason:        reason,
		BalanceBefore: before,
		BalanceAfter:  after,
		OrderID:       orderID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	log.Printf("[points] user=%d %s %+d balance %d -> %d (%s)", userID, txType, amount, before, after, reason)
	return nil
}

func debitPoints(tx *gorm.DB, userID uint, amount int64, txType models.PointsTxType, reason string, orderID *uint) error {
	account, err := lockAccount(tx, userID)
	if err != nil {
		return err
	}
	if account.Balance < amount {
		return &InsufficientBalanceError{Balance: account.Balance, Required: amount}
	}
	before := account.Balance
	after := before - amount
	if err := tx.Model(account).Update("balance", after).Error; err != nil {
		return err
	}
	entry := models.PointsEntry{
		UserID:        userID,
		Change:        -amount,
		TxType:        txType,
		Reason:        reason,
		BalanceBefore: before,
		BalanceAfter:  after,
		OrderID:       orderID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	log.Printf("[points] user=%d %s %d balance %d -> %d (%s)", userID, txType, -amount, before, after, reason)
	return nil
}
