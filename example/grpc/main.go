package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	appgrpc "github.com/Muhammadxon2oo7/agro/internal/grpc"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func main() {
	conn, err := grpc.NewClient("localhost:9090",
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("Failed to close connection: %v", err)
		}
	}()

	client := appgrpc.NewClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Println("=== Test 1: SubmitReading ===")
	testSubmitReading(ctx, client)

	fmt.Println("\n=== Test 2: ListReadings ===")
	testListReadings(ctx, client)

	fmt.Println("\n=== Test 3: GetSummary ===")
	testGetSummary(ctx, client)

	fmt.Println("\n=== Test 4: Validation Errors ===")
	testValidationErrors(ctx, client)
}

func printStatus(err error) {
	if st, ok := status.FromError(err); ok {
		fmt.Printf("gRPC error: %s (code: %s)\n", st.Message(), st.Code())
		return
	}
	log.Printf("Error: %v", err)
}

func testSubmitReading(ctx context.Context, client *appgrpc.Client) {
	payload := json.RawMessage(`{"deviceId":"DEV-001","readings":` +
		`{"nitrogen":65,"phosphorus":42,"potassium":120,"ph":6.8,"temperature":22.5,"moisture":38},` +
		`"location":{"latitude":39.6542,"longitude":66.9597}}`)

	resp, err := client.SubmitReading(ctx, &appgrpc.SubmitReadingRequest{Payload: payload})
	if err != nil {
		printStatus(err)
		return
	}
	fmt.Printf("%s, id=%s\n", resp.Message, resp.ID)
}

func testListReadings(ctx context.Context, client *appgrpc.Client) {
	req := &appgrpc.ListReadingsRequest{
		DeviceID: "DEV-001",
		From:     time.Now().Add(-24 * time.Hour).Format(time.RFC3339),
		Limit:    10,
	}

	resp, err := client.ListReadings(ctx, req)
	if err != nil {
		printStatus(err)
		return
	}

	fmt.Printf("Found %d readings:\n", len(resp.Data))
	for i, r := range resp.Data {
		fmt.Printf("%d. %s %s N=%.1f P=%.1f K=%.1f pH=%.1f\n", i+1, r.Timestamp, r.DeviceID,
			r.Readings.Nitrogen, r.Readings.Phosphorus, r.Readings.Potassium, r.Readings.PH)
	}
}

func testGetSummary(ctx context.Context, client *appgrpc.Client) {
	resp, err := client.GetSummary(ctx, &appgrpc.GetSummaryRequest{DeviceID: "DEV-001"})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			fmt.Println("No readings for DEV-001 yet")
			return
		}
		printStatus(err)
		return
	}

	fmt.Printf("%d readings, latest at %s\n", resp.Data.Count, resp.Data.LatestTimestamp)
	for metric, m := range resp.Data.Metrics {
		fmt.Printf("  %-12s latest=%.2f min=%.2f max=%.2f avg=%.2f\n", metric, m.Latest, m.Min, m.Max, m.Average)
	}
}

func testValidationErrors(ctx context.Context, client *appgrpc.Client) {
	fmt.Println("Testing missing deviceId...")
	_, err := client.SubmitReading(ctx, &appgrpc.SubmitReadingRequest{
		Payload: json.RawMessage(`{"readings":{"nitrogen":1}}`),
	})
	if err != nil {
		printStatus(err)
	}

	fmt.Println("Testing missing metrics...")
	_, err = client.SubmitReading(ctx, &appgrpc.SubmitReadingRequest{
		Payload: json.RawMessage(`{"deviceId":"x","readings":{"nitrogen":10}}`),
	})
	if err != nil {
		printStatus(err)
	}

	fmt.Println("Testing invalid time range...")
	_, err = client.ListReadings(ctx, &appgrpc.ListReadingsRequest{From: "invalid-date"})
	if err != nil {
		printStatus(err)
	}
}
