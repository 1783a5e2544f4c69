package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"mechmap/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "list-rooms":
		if err := listRooms(storageSvc); err != nil {
			log.Fatalf("Error listing rooms: %v", err)
		}
	case "delete-room":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin delete-room <room_id>")
			os.Exit(1)
		}
		roomID := strings.ToUpper(os.Args[2])
		if err := storageSvc.DeleteRoomRecord(roomID); err != nil {
			log.Fatalf("Error deleting room: %v", err)
		}
		fmt.Printf("Room %s has been deleted.\n", roomID)
	case "promote":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin promote <username>")
			os.Exit(1)
		}
		username := os.Args[2]
		if err := storageSvc.SetUserAdmin(username, true); err != nil {
			log.Fatalf("Error promoting user: %v", err)
		}
		fmt.Printf("User %s is now an admin.\n", username)
	case "demote":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin demote <username>")
			os.Exit(1)
		}
		username := os.Args[2]
		if err := storageSvc.SetUserAdmin(username, false); err != nil {
			log.Fatalf("Error demoting user: %v", err)
		}
		fmt.Printf("User %s is no longer an admin.\n", username)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func listRooms(s storage.Storage) error {
	records, err := s.GetAllRoomRecords()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No rooms found.")
		return nil
	}
	fmt.Printf("%-8s %-24s %-16s %-8s %s\n", "ID", "NAME", "OWNER", "VERSION", "LAST ACTIVITY")
	for _, r := range records {
		owner := r.OwnerUsername
		if owner == "" {
			owner = "-"
		}
		fmt.Printf("%-8s %-24s %-16s %-8d %s\n",
			r.RoomID, r.Name, owner, r.Version, r.LastActivity.Format(time.RFC3339))
	}
	return nil
}
