package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"vetline/backend/internal/backend"
	"vetline/backend/internal/config"
	"vetline/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "callbacks":
		listCallbacks(storageSvc)
	case "callback-contacted":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin callback-contacted <callback_id>")
			os.Exit(1)
		}
		if err := storageSvc.MarkCallbackContacted(os.Args[2]); err != nil {
			log.Fatalf("Error updating callback: %v", err)
		}
		fmt.Printf("Callback %s marked as contacted.\n", os.Args[2])
	case "staff":
		role := ""
		if len(os.Args) > 2 {
			role = os.Args[2]
		}
		listStaff(storageSvc, role)
	case "rooms":
		listActiveRooms(storageSvc)
	case "directory":
		showDirectory(cfg)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  callbacks                  list open callback requests")
	fmt.Println("  callback-contacted <id>    mark a callback as contacted")
	fmt.Println("  staff [role]               list locally known staff profiles")
	fmt.Println("  rooms                      list rooms marked active")
	fmt.Println("  directory                  fetch the public staff directory from the backend")
}

func listCallbacks(s storage.Storage) {
	callbacks, err := s.ListOpenCallbacks()
	if err != nil {
		log.Fatalf("Error listing callbacks: %v", err)
	}
	if len(callbacks) == 0 {
		fmt.Println("No open callbacks.")
		return
	}
	for _, cb := range callbacks {
		fmt.Printf("%s  %-20s %-15s %s (%s)\n",
			cb.CreatedAt.Format(time.RFC3339), cb.Name, cb.Phone, cb.Reason, cb.PreferredType)
		fmt.Printf("    id: %s\n", cb.ID)
	}
}

func listStaff(s storage.Storage, role string) {
	staff, err := s.ListStaffByRole(role)
	if err != nil {
		log.Fatalf("Error listing staff: %v", err)
	}
	for _, p := range staff {
		fmt.Printf("%-12s %-24s last seen %s  [%s]\n",
			p.Role, p.Name, p.LastSeenAt.Format(time.RFC3339), strings.Join(p.Specialities, ", "))
	}
}

func listActiveRooms(s storage.Storage) {
	roomIDs, err := s.GetActiveRoomIDs()
	if err != nil {
		log.Fatalf("Error listing rooms: %v", err)
	}
	if len(roomIDs) == 0 {
		fmt.Println("No active rooms.")
		return
	}
	for _, id := range roomIDs {
		fmt.Println(id)
	}
}

func showDirectory(cfg *config.Config) {
	client := backend.NewClient(cfg.BackendBaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counsellors, err := client.ListCounsellors(ctx)
	if err != nil {
		log.Fatalf("Error fetching counsellors: %v", err)
	}
	fmt.Printf("Counsellors (%d):\n", len(counsellors))
	for _, c := range counsellors {
		fmt.Printf("  %-24s %s [%s]\n", c.Name, c.Title, strings.Join(c.Specialities, ", "))
	}

	peers, err := client.ListPeerSupporters(ctx)
	if err != nil {
		log.Fatalf("Error fetching peer supporters: %v", err)
	}
	fmt.Printf("Peer supporters (%d):\n", len(peers))
	for _, p := range peers {
		fmt.Printf("  %-24s %s, %d years out\n", p.Name, p.Service, p.YearsOut)
	}
}
