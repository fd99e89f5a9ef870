package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/storage"
)

// SaveReceipt stores a room's receipt, replacing any previous receipt and its tags.
func (s *SQLiteStore) SaveReceipt(ctx context.Context, roomID string, receipt *models.Receipt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := getRoom(ctx, tx, roomID); err != nil {
		return err
	}

	// Cascades to taxes, items and tags.
	if _, err := tx.ExecContext(ctx, "DELETE FROM receipts WHERE room_id = ?", roomID); err != nil {
		return fmt.Errorf("failed to clear receipt: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO receipts (room_id, service_charge, net_amount) VALUES (?, ?, ?)",
		roomID, receipt.SharedCharges.ServiceCharge.String(), receipt.NetAmount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	for i, tax := range receipt.SharedCharges.Taxes {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO receipt_taxes (room_id, position, name, amount) VALUES (?, ?, ?, ?)",
			roomID, i, tax.Name, tax.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert tax: %w", err)
		}
	}

	for i := range receipt.Items {
		item := &receipt.Items[i]
		item.Index = i

		_, err = tx.ExecContext(ctx,
			"INSERT INTO receipt_items (room_id, item_index, name, quantity, unit_price, line_total) VALUES (?, ?, ?, ?, ?, ?)",
			roomID, i, item.Name, item.Quantity.String(), item.UnitPrice.String(), item.LineTotal.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for _, participantID := range item.Tags {
			_, err = tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO item_tags (room_id, item_index, participant_id) VALUES (?, ?, ?)",
				roomID, i, participantID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item tag: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetReceipt retrieves a room's receipt, or nil if none was uploaded.
func (s *SQLiteStore) GetReceipt(ctx context.Context, roomID string) (*models.Receipt, error) {
	var serviceCharge, netAmount string
	err := s.db.QueryRowContext(ctx,
		"SELECT service_charge, net_amount FROM receipts WHERE room_id = ?",
		roomID,
	).Scan(&serviceCharge, &netAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	receipt := &models.Receipt{}
	if receipt.SharedCharges.ServiceCharge, err = decimal.NewFromString(serviceCharge); err != nil {
		return nil, fmt.Errorf("failed to parse service charge: %w", err)
	}
	if receipt.NetAmount, err = decimal.NewFromString(netAmount); err != nil {
		return nil, fmt.Errorf("failed to parse net amount: %w", err)
	}

	taxRows, err := s.db.QueryContext(ctx,
		"SELECT name, amount FROM receipt_taxes WHERE room_id = ? ORDER BY position",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get taxes: %w", err)
	}
	defer taxRows.Close()

	for taxRows.Next() {
		var (
			tax    models.TaxComponent
			amount string
		)
		if err := taxRows.Scan(&tax.Name, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan tax: %w", err)
		}
		if tax.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse tax amount: %w", err)
		}
		receipt.SharedCharges.Taxes = append(receipt.SharedCharges.Taxes, tax)
	}
	if err := taxRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate taxes: %w", err)
	}

	receipt.Items, err = getItems(ctx, s.db, roomID)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// SetItemTag adds or removes one participant's tag on one item.
func (s *SQLiteStore) SetItemTag(ctx context.Context, roomID string, itemIndex int, participantID string, tagged bool) ([]models.ReceiptItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	room, err := getRoom(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, fmt.Errorf("room %s: %w", roomID, storage.ErrRoomInactive)
	}
	if !room.HasParticipant(participantID) {
		return nil, fmt.Errorf("%s: %w", participantID, storage.ErrParticipantNotInRoom)
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM receipt_items WHERE room_id = ? AND item_index = ?",
		roomID, itemIndex,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check item: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("item %d: %w", itemIndex, storage.ErrInvalidItem)
	}

	if tagged {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO item_tags (room_id, item_index, participant_id) VALUES (?, ?, ?)",
			roomID, itemIndex, participantID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM item_tags WHERE room_id = ? AND item_index = ? AND participant_id = ?",
			roomID, itemIndex, participantID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item tag: %w", err)
	}

	items, err := getItems(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return items, nil
}

// getItems loads a room's items in receipt order with their tags in tagging order.
func getItems(ctx context.Context, q queryer, roomID string) ([]models.ReceiptItem, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT item_index, name, quantity, unit_price, line_total FROM receipt_items WHERE room_id = ? ORDER BY item_index",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []models.ReceiptItem
	for rows.Next() {
		var (
			item                              models.ReceiptItem
			quantity, unitPrice, lineTotal string
		)
		if err := rows.Scan(&item.Index, &item.Name, &quantity, &unitPrice, &lineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if item.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("failed to parse unit price: %w", err)
		}
		if item.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return nil, fmt.Errorf("failed to parse line total: %w", err)
		}
		item.Tags = []string{}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	rows.Close()

	tagRows, err := q.QueryContext(ctx,
		"SELECT item_index, participant_id FROM item_tags WHERE room_id = ? ORDER BY rowid",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get item tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var (
			index         int
			participantID string
		)
		if err := tagRows.Scan(&index, &participantID); err != nil {
			return nil, fmt.Errorf("failed to scan item tag: %w", err)
		}
		if index >= 0 && index < len(items) {
			items[index].Tags = append(items[index].Tags, participantID)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item tags: %w", err)
	}

	return items, nil
}
