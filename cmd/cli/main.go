package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "building":
		handleBuilding(args)
	case "unit":
		handleUnit(args)
	case "payment":
		handlePayment(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: propertylease auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerOwner(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleBuilding(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: propertylease building <list|create|units>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listBuildings(args[1:])
	case "create":
		createBuilding(args[1:])
	case "units":
		listUnits(args[1:])
	default:
		fmt.Printf("unknown building command: %s\n", subCmd)
	}
}

func handleUnit(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: propertylease unit <regen-code|release>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "regen-code":
		regenRoomCode(args[1:])
	case "release":
		releaseUnit(args[1:])
	default:
		fmt.Printf("unknown unit command: %s\n", subCmd)
	}
}

func handlePayment(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: propertylease payment <list|get|refund>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listPayments(args[1:])
	case "get":
		getPayment(args[1:])
	case "refund":
		refundPayment(args[1:])
	default:
		fmt.Printf("unknown payment command: %s\n", subCmd)
	}
}

// Auth commands
func registerOwner(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"email":      *email,
		"password":   *password,
		"first_name": *firstName,
		"last_name":  *lastName,
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Owner registered: %s\n", *email)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Building commands
func listBuildings(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/buildings", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var buildings []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&buildings)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS")
	for _, b := range buildings {
		fmt.Fprintf(w, "%v\t%v\t%v\n", b["ID"], b["Name"], b["Address"])
	}
	w.Flush()
}

func createBuilding(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "building name")
	address := fs.String("address", "", "street address")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"name": *name, "address": *address}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/buildings", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Building created: %v\n", result["ID"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func listUnits(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: propertylease building units <building-id>")
		return
	}
	req, _ := http.NewRequest("GET", getAPIURL()+"/buildings/"+args[0]+"/units", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var units []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&units)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUNIT\tAVAILABLE\tRENT\tROOM CODE")
	for _, u := range units {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", u["ID"], u["UnitNumber"], u["IsAvailable"], u["MonthlyRent"], u["RoomCode"])
	}
	w.Flush()
}

// Unit commands
func regenRoomCode(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: propertylease unit regen-code <unit-id>")
		return
	}
	req, _ := http.NewRequest("POST", getAPIURL()+"/units/"+args[0]+"/room-code", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ New room code: %v\n", result["room_code"])
	} else {
		fmt.Printf("✗ Regenerate failed: %v\n", result)
	}
}

func releaseUnit(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: propertylease unit release <unit-id>")
		return
	}
	req, _ := http.NewRequest("POST", getAPIURL()+"/units/"+args[0]+"/release", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Println("✓ Unit released")
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Release failed: %v\n", result)
	}
}

// Payment commands
func listPayments(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	owner := fs.Bool("owner", false, "list payments across owned buildings")

	fs.Parse(args)

	path := "/payments"
	if *owner {
		path = "/owner/payments"
	}
	req, _ := http.NewRequest("GET", getAPIURL()+path, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var payments []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&payments)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REFERENCE\tTYPE\tAMOUNT\tSTATUS\tDATE")
	for _, p := range payments {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			p["ReferenceNumber"], p["Type"], p["Amount"], p["Status"], p["PaymentDate"])
	}
	w.Flush()
}

func getPayment(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: propertylease payment get <payment-id>")
		return
	}
	req, _ := http.NewRequest("GET", getAPIURL()+"/payments/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func refundPayment(args []string) {
	fs := flag.NewFlagSet("refund", flag.ExitOnError)
	id := fs.String("id", "", "payment id")
	amount := fs.String("amount", "", "refund amount, e.g. 650.00")
	reason := fs.String("reason", "", "refund reason")

	fs.Parse(args)

	if *id == "" || *amount == "" {
		fmt.Println("Error: id and amount are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"amount": *amount, "reason": *reason}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/payments/"+*id+"/refund", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Refund applied, status: %v\n", result["Status"])
	} else {
		fmt.Printf("✗ Refund failed: %v\n", result)
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("PROPERTYLEASE_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.propertylease/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.propertylease", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`PropertyLease CLI

Usage:
  propertylease <command> [options]

Commands:
  auth      Account operations (register, login, logout, who)
  building  Building operations (list, create, units)
  unit      Unit operations (regen-code, release)
  payment   Payment operations (list, get, refund)
  help      Show this help message

Environment Variables:
  PROPERTYLEASE_API    API endpoint (default: http://localhost:8080/api)

Examples:
  propertylease auth register -email owner@example.com -password secret123
  propertylease auth login -email owner@example.com -password secret123
  propertylease building create -name "Maple Court" -address "12 Maple St"
  propertylease payment list -owner
  propertylease payment refund -id <payment-id> -amount 650.00 -reason "overpayment"
`)
}
