package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration-test database. It expects a MySQL
// instance at localhost:3306 with a database named 'aquamart_test' and
// skips the test when none is reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/aquamart_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"OrderStatusHistory", "OrderItems", "Notifications", "Orders", "PromoCodes", "Products", "Addresses"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema the settlement pipeline depends on.
func SetupTestTables(t *testing.T, db *sql.DB) {
	createProductsTable := `
	CREATE TABLE IF NOT EXISTS Products (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		vendorId BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		image VARCHAR(512) NOT NULL DEFAULT '',
		price DECIMAL(12,2) NOT NULL,
		stock INT NOT NULL DEFAULT 0,
		freeShipping TINYINT(1) NOT NULL DEFAULT 0,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_vendor (vendorId)
	)`

	createAddressesTable := `
	CREATE TABLE IF NOT EXISTS Addresses (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		userId BIGINT NOT NULL,
		name VARCHAR(150) NOT NULL,
		phone VARCHAR(30) NOT NULL,
		address VARCHAR(512) NOT NULL,
		city VARCHAR(100) NOT NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_user (userId)
	)`

	createPromoCodesTable := `
	CREATE TABLE IF NOT EXISTS PromoCodes (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		code VARCHAR(50) NOT NULL UNIQUE,
		discountType VARCHAR(20) NOT NULL,
		value DECIMAL(12,2) NOT NULL,
		maxDiscount DECIMAL(12,2),
		minOrder DECIMAL(12,2),
		usageLimit INT,
		usageCount INT NOT NULL DEFAULT 0,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		expiresAt DATETIME,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS Orders (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		userId BIGINT NOT NULL,
		orderNo VARCHAR(30) NOT NULL DEFAULT '',
		status VARCHAR(30) NOT NULL DEFAULT 'PENDING',
		shipName VARCHAR(150) NOT NULL,
		shipPhone VARCHAR(30) NOT NULL,
		shipAddress VARCHAR(512) NOT NULL,
		shipCity VARCHAR(100) NOT NULL,
		note VARCHAR(512) NOT NULL DEFAULT '',
		subtotal DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		shipping DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		vat DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		discount DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		total DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		commission DECIMAL(12,2) NOT NULL DEFAULT 0.00,
		promoId BIGINT,
		promoCode VARCHAR(50) NOT NULL DEFAULT '',
		tranId VARCHAR(64) UNIQUE,
		sessionKey VARCHAR(128) NOT NULL DEFAULT '',
		valId VARCHAR(64) NOT NULL DEFAULT '',
		cardType VARCHAR(64) NOT NULL DEFAULT '',
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		paidAt DATETIME,
		deliveredAt DATETIME,
		INDEX idx_user (userId),
		INDEX idx_status (status)
	)`

	createOrderItemsTable := `
	CREATE TABLE IF NOT EXISTS OrderItems (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId INT UNSIGNED NOT NULL,
		productId BIGINT NOT NULL,
		vendorId BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		image VARCHAR(512) NOT NULL DEFAULT '',
		unitPrice DECIMAL(12,2) NOT NULL,
		quantity INT NOT NULL DEFAULT 1,
		lineTotal DECIMAL(12,2) NOT NULL,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		INDEX idx_order (orderId),
		INDEX idx_product (productId)
	)`

	createStatusHistoryTable := `
	CREATE TABLE IF NOT EXISTS OrderStatusHistory (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId INT UNSIGNED NOT NULL,
		status VARCHAR(30) NOT NULL,
		note VARCHAR(512) NOT NULL DEFAULT '',
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		INDEX idx_order (orderId)
	)`

	createNotificationsTable := `
	CREATE TABLE IF NOT EXISTS Notifications (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		userId BIGINT NOT NULL,
		title VARCHAR(150) NOT NULL,
		body VARCHAR(512) NOT NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_user (userId)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"Products", createProductsTable},
		{"Addresses", createAddressesTable},
		{"PromoCodes", createPromoCodesTable},
		{"Orders", createOrdersTable},
		{"OrderItems", createOrderItemsTable},
		{"OrderStatusHistory", createStatusHistoryTable},
		{"Notifications", createNotificationsTable},
	}

	for _, tbl := range tables {
		if _, err := db.Exec(tbl.query); err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
