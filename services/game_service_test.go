// services/game_service_test.go
package services

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/games"
	"github.com/chipstack/casinobot/models"
	"github.com/chipstack/casinobot/persistence"
)

// fakeDatabase keeps everything in maps. Transaction snapshots the maps and
// restores them when fn fails, so rollback behaviour can be asserted.
type fakeDatabase struct {
	players map[string]*models.Player
	games   map[string]*models.ActiveGame
	records []*models.GameRecord
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		players: make(map[string]*models.Player),
		games:   make(map[string]*models.ActiveGame),
	}
}

func playerKey(userID, guildID int64) string {
	return fmt.Sprintf("%d/%d", userID, guildID)
}

func gameKey(userID, guildID int64, gameType string) string {
	return fmt.Sprintf("%d/%d/%s", userID, guildID, gameType)
}

func (f *fakeDatabase) GetPlayer(userID, guildID int64) (*models.Player, error) {
	player, ok := f.players[playerKey(userID, guildID)]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	clone := *player
	return &clone, nil
}

func (f *fakeDatabase) CreatePlayer(player *models.Player) error {
	clone := *player
	f.players[playerKey(player.UserID, player.GuildID)] = &clone
	return nil
}

func (f *fakeDatabase) AdjustPlayerMoney(userID, guildID int64, delta decimal.Decimal) error {
	player, ok := f.players[playerKey(userID, guildID)]
	if !ok {
		return persistence.ErrRecordNotFound
	}
	next := player.Money.Add(delta)
	if next.IsNegative() {
		return persistence.ErrInsufficientFunds
	}
	player.Money = next
	return nil
}

func (f *fakeDatabase) GetActiveGame(userID, guildID int64, gameType string) (*models.ActiveGame, error) {
	game, ok := f.games[gameKey(userID, guildID, gameType)]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	clone := *game
	return &clone, nil
}

func (f *fakeDatabase) SaveActiveGame(game *models.ActiveGame) error {
	clone := *game
	f.games[gameKey(game.UserID, game.GuildID, game.GameType)] = &clone
	return nil
}

func (f *fakeDatabase) DeleteActiveGame(userID, guildID int64, gameType string) error {
	delete(f.games, gameKey(userID, guildID, gameType))
	return nil
}

func (f *fakeDatabase) SaveGameRecord(record *models.GameRecord) error {
	clone := *record
	f.records = append(f.records, &clone)
	return nil
}

func (f *fakeDatabase) GetPlayerStats(userID, guildID int64) (*models.PlayerStats, error) {
	stats := &models.PlayerStats{
		TotalWagered: decimal.Zero,
		TotalPayout:  decimal.Zero,
	}
	for _, record := range f.records {
		if record.UserID != userID || record.GuildID != guildID {
			continue
		}
		stats.TotalGames++
		stats.TotalWagered = stats.TotalWagered.Add(record.Wagered)
		stats.TotalPayout = stats.TotalPayout.Add(record.Payout)
		switch record.Outcome {
		case "win":
			stats.Wins++
		case "lose":
			stats.Losses++
		case "push":
			stats.Pushes++
		}
	}
	return stats, nil
}

func (f *fakeDatabase) Transaction(fn func(tx persistence.Database) error) error {
	players := make(map[string]*models.Player, len(f.players))
	for key, player := range f.players {
		clone := *player
		players[key] = &clone
	}
	gameRows := make(map[string]*models.ActiveGame, len(f.games))
	for key, game := range f.games {
		clone := *game
		gameRows[key] = &clone
	}
	records := append([]*models.GameRecord(nil), f.records...)

	if err := fn(f); err != nil {
		f.players = players
		f.games = gameRows
		f.records = records
		return err
	}
	return nil
}

func (f *fakeDatabase) Close() error { return nil }

type recordingAnnouncer struct {
	names   []string
	payouts []decimal.Decimal
}

func (a *recordingAnnouncer) AnnounceWin(playerName, gameType string, payout decimal.Decimal) {
	a.names = append(a.names, playerName)
	a.payouts = append(a.payouts, payout)
}

const (
	testUser  int64 = 42
	testGuild int64 = 7
)

func newTestService(t *testing.T, seed int64, balance string) (*GameService, *fakeDatabase, *recordingAnnouncer) {
	t.Helper()
	db := newFakeDatabase()
	if err := db.CreatePlayer(&models.Player{
		UserID:  testUser,
		GuildID: testGuild,
		Name:    "alice",
		Money:   decimal.RequireFromString(balance),
	}); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	announcer := &recordingAnnouncer{}
	service := NewGameService(db, nil, announcer,
		decimal.RequireFromString("1000"), rand.New(rand.NewSource(seed)))
	return service, db, announcer
}

func balanceOf(t *testing.T, db *fakeDatabase) decimal.Decimal {
	t.Helper()
	player, err := db.GetPlayer(testUser, testGuild)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	return player.Money
}

func TestBlackjackActionWithoutAccount(t *testing.T) {
	service := NewGameService(newFakeDatabase(), nil, nil, decimal.Zero, rand.New(rand.NewSource(1)))
	if _, err := service.BlackjackAction(99, 99, ActionStart, decimal.NewFromInt(10)); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("err = %v, want ErrNoAccount", err)
	}
}

func TestBlackjackStartDebitsAndStores(t *testing.T) {
	service, db, _ := newTestService(t, 1, "100")

	snapshot, err := service.BlackjackAction(testUser, testGuild, ActionStart, decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(snapshot.PlayerCards) != 2 {
		t.Fatalf("player cards = %v, want two", snapshot.PlayerCards)
	}
	if !snapshot.Ended {
		if len(snapshot.DealerCards) != 2 || snapshot.DealerCards[1] != "??" {
			t.Fatalf("dealer cards = %v, want upcard plus masked hole card", snapshot.DealerCards)
		}
		if !snapshot.Balance.Equal(decimal.NewFromInt(70)) {
			t.Fatalf("balance = %s, want 70", snapshot.Balance)
		}
		if _, err := db.GetActiveGame(testUser, testGuild, games.TypeBlackjack); err != nil {
			t.Fatalf("active game not stored: %v", err)
		}
	}
}

func TestBlackjackStartReplaysExistingGame(t *testing.T) {
	// Seed 3 deals a game that is still in play after the opening deal.
	service, db, _ := newTestService(t, 3, "100")

	first, err := service.BlackjackAction(testUser, testGuild, ActionStart, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.Ended {
		t.Skip("opening deal settled immediately, nothing to replay")
	}
	before := balanceOf(t, db)

	second, err := service.BlackjackAction(testUser, testGuild, ActionStart, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !balanceOf(t, db).Equal(before) {
		t.Fatalf("second start changed the balance: %s -> %s", before, balanceOf(t, db))
	}
	if !second.Wager.Equal(first.Wager) {
		t.Fatalf("replayed wager = %s, want %s", second.Wager, first.Wager)
	}
	if fmt.Sprint(second.PlayerCards) != fmt.Sprint(first.PlayerCards) {
		t.Fatalf("replayed hand %v differs from original %v", second.PlayerCards, first.PlayerCards)
	}
}

func TestBlackjackStartInsufficientFunds(t *testing.T) {
	service, db, _ := newTestService(t, 1, "20")

	if _, err := service.BlackjackAction(testUser, testGuild, ActionStart, decimal.NewFromInt(50)); !errors.Is(err, persistence.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if !balanceOf(t, db).Equal(decimal.NewFromInt(20)) {
		t.Fatalf("failed start changed the balance: %s", balanceOf(t, db))
	}
	if _, err := db.GetActiveGame(testUser, testGuild, games.TypeBlackjack); !errors.Is(err, persistence.ErrRecordNotFound) {
		t.Fatalf("failed start stored a game: %v", err)
	}
}

func TestBlackjackStartRejectsBadAmounts(t *testing.T) {
	service, _, _ := newTestService(t, 1, "100")

	for _, amount := range []string{"0", "-5"} {
		if _, err := service.BlackjackAction(testUser, testGuild, ActionStart, decimal.RequireFromString(amount)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestBlackjackActionWithoutGame(t *testing.T) {
	service, _, _ := newTestService(t, 1, "100")

	for _, action := range []string{ActionHit, ActionStand, ActionDoubleDown} {
		if _, err := service.BlackjackAction(testUser, testGuild, action, decimal.Zero); !errors.Is(err, ErrNoActiveGame) {
			t.Fatalf("%s: err = %v, want ErrNoActiveGame", action, err)
		}
	}
}

func TestBlackjackUnknownAction(t *testing.T) {
	service, _, _ := newTestService(t, 1, "100")

	if _, err := service.BlackjackAction(testUser, testGuild, "split", decimal.Zero); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
}

func TestBlackjackStandSettlesLedger(t *testing.T) {
	service, db, _ := newTestService(t, 5, "100")
	wager := decimal.NewFromInt(40)

	snapshot, err := service.BlackjackAction(testUser, testGuild, ActionStart, wager)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !snapshot.Ended {
		snapshot, err = service.BlackjackAction(testUser, testGuild, ActionStand, decimal.Zero)
		if err != nil {
			t.Fatalf("stand: %v", err)
		}
	}
	if !snapshot.Ended {
		t.Fatal("game still open after stand")
	}

	// The final balance is the start minus the stake plus whatever the
	// settlement paid, whatever the cards were.
	want := decimal.NewFromInt(100).Sub(wager).Add(snapshot.Payout)
	if !balanceOf(t, db).Equal(want) {
		t.Fatalf("balance = %s, want %s", balanceOf(t, db), want)
	}
	if _, err := db.GetActiveGame(testUser, testGuild, games.TypeBlackjack); !errors.Is(err, persistence.ErrRecordNotFound) {
		t.Fatalf("settled game still stored: %v", err)
	}
	if len(db.records) != 1 {
		t.Fatalf("records = %d, want 1", len(db.records))
	}
	record := db.records[0]
	if record.GameType != games.TypeBlackjack || !record.Payout.Equal(snapshot.Payout) || record.Outcome != snapshot.Outcome {
		t.Fatalf("record = %+v, want payout %s outcome %q", record, snapshot.Payout, snapshot.Outcome)
	}
	if len(snapshot.DealerCards) < 2 || snapshot.DealerCards[1] == "??" {
		t.Fatalf("dealer hand still masked after settlement: %v", snapshot.DealerCards)
	}
}

func TestBlackjackDoubleDownAfterHitRollsBack(t *testing.T) {
	// Hunt for a seed where the opening deal stays open and the first hit
	// leaves the game open too, so the forfeited double-down can be tried.
	for seed := int64(1); seed < 200; seed++ {
		service, db, _ := newTestService(t, seed, "500")
		wager := decimal.NewFromInt(50)

		snapshot, err := service.BlackjackAction(testUser, testGuild, ActionStart, wager)
		if err != nil {
			t.Fatalf("seed %d start: %v", seed, err)
		}
		if snapshot.Ended {
			continue
		}
		snapshot, err = service.BlackjackAction(testUser, testGuild, ActionHit, decimal.Zero)
		if err != nil {
			t.Fatalf("seed %d hit: %v", seed, err)
		}
		if snapshot.Ended {
			continue
		}
		if snapshot.CanDoubleDown {
			t.Fatalf("seed %d: double down still allowed after hit", seed)
		}

		before := balanceOf(t, db)
		if _, err := service.BlackjackAction(testUser, testGuild, ActionDoubleDown, decimal.Zero); !errors.Is(err, games.ErrInvalidAction) {
			t.Fatalf("seed %d: err = %v, want ErrInvalidAction", seed, err)
		}
		if !balanceOf(t, db).Equal(before) {
			t.Fatalf("seed %d: rejected double down moved the balance: %s -> %s",
				seed, before, balanceOf(t, db))
		}
		return
	}
	t.Fatal("no seed produced a two-draw open game")
}

func TestBlackjackDoubleDownChargesSecondStake(t *testing.T) {
	for seed := int64(1); seed < 200; seed++ {
		service, db, _ := newTestService(t, seed, "500")
		wager := decimal.NewFromInt(50)

		snapshot, err := service.BlackjackAction(testUser, testGuild, ActionStart, wager)
		if err != nil {
			t.Fatalf("seed %d start: %v", seed, err)
		}
		if snapshot.Ended || !snapshot.CanDoubleDown {
			continue
		}

		snapshot, err = service.BlackjackAction(testUser, testGuild, ActionDoubleDown, decimal.Zero)
		if err != nil {
			t.Fatalf("seed %d double: %v", seed, err)
		}
		if !snapshot.Ended {
			t.Fatalf("seed %d: game open after double down", seed)
		}
		if !snapshot.Wager.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("seed %d: wager = %s, want 100", seed, snapshot.Wager)
		}

		want := decimal.NewFromInt(500).Sub(decimal.NewFromInt(100)).Add(snapshot.Payout)
		if !balanceOf(t, db).Equal(want) {
			t.Fatalf("seed %d: balance = %s, want %s", seed, balanceOf(t, db), want)
		}
		if len(db.records) != 1 || !db.records[0].Wagered.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("seed %d: record %+v, want wagered 100", seed, db.records[0])
		}
		return
	}
	t.Fatal("no seed produced an open opening deal")
}

func TestRoulettePlaceBetsAccumulate(t *testing.T) {
	service, db, _ := newTestService(t, 1, "200")

	if _, err := service.PlaceOutsideBet(testUser, testGuild, "even", decimal.NewFromInt(30)); err != nil {
		t.Fatalf("outside bet: %v", err)
	}
	snapshot, err := service.PlaceInsideBet(testUser, testGuild, 17, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("inside bet: %v", err)
	}

	if !snapshot.Wagered.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("wagered = %s, want 50", snapshot.Wagered)
	}
	if !snapshot.OutsideBets["even"].Equal(decimal.NewFromInt(30)) {
		t.Fatalf("outside bets = %v", snapshot.OutsideBets)
	}
	if !snapshot.InsideBets["17"].Equal(decimal.NewFromInt(20)) {
		t.Fatalf("inside bets = %v", snapshot.InsideBets)
	}
	if !balanceOf(t, db).Equal(decimal.NewFromInt(150)) {
		t.Fatalf("balance = %s, want 150", balanceOf(t, db))
	}
	if _, err := db.GetActiveGame(testUser, testGuild, games.TypeRoulette); err != nil {
		t.Fatalf("round not stored: %v", err)
	}
}

func TestRouletteInvalidBetRollsBack(t *testing.T) {
	service, db, _ := newTestService(t, 1, "200")

	if _, err := service.PlaceOutsideBet(testUser, testGuild, "red", decimal.NewFromInt(30)); !errors.Is(err, games.ErrInvalidBet) {
		t.Fatalf("err = %v, want ErrInvalidBet", err)
	}
	if _, err := service.PlaceInsideBet(testUser, testGuild, 99, decimal.NewFromInt(30)); !errors.Is(err, games.ErrInvalidBet) {
		t.Fatalf("err = %v, want ErrInvalidBet", err)
	}
	if !balanceOf(t, db).Equal(decimal.NewFromInt(200)) {
		t.Fatalf("rejected bets moved the balance: %s", balanceOf(t, db))
	}
	if _, err := db.GetActiveGame(testUser, testGuild, games.TypeRoulette); !errors.Is(err, persistence.ErrRecordNotFound) {
		t.Fatalf("rejected bet stored a round: %v", err)
	}
}

func TestRouletteSpinWithoutBets(t *testing.T) {
	service, _, _ := newTestService(t, 1, "200")

	if _, err := service.SpinRoulette(testUser, testGuild); !errors.Is(err, games.ErrNoBetsPlaced) {
		t.Fatalf("err = %v, want ErrNoBetsPlaced", err)
	}
}

func TestRouletteSpinSettlesLedger(t *testing.T) {
	service, db, _ := newTestService(t, 11, "200")

	if _, err := service.PlaceOutsideBet(testUser, testGuild, "even", decimal.NewFromInt(40)); err != nil {
		t.Fatalf("bet: %v", err)
	}
	snapshot, err := service.SpinRoulette(testUser, testGuild)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if !snapshot.Resolved || snapshot.WinningNumber == nil {
		t.Fatalf("snapshot not resolved: %+v", snapshot)
	}

	want := decimal.NewFromInt(200).Sub(decimal.NewFromInt(40)).Add(snapshot.Payout)
	if !balanceOf(t, db).Equal(want) {
		t.Fatalf("balance = %s, want %s", balanceOf(t, db), want)
	}
	if _, err := db.GetActiveGame(testUser, testGuild, games.TypeRoulette); !errors.Is(err, persistence.ErrRecordNotFound) {
		t.Fatalf("resolved round still stored: %v", err)
	}
	if len(db.records) != 1 || db.records[0].GameType != games.TypeRoulette {
		t.Fatalf("records = %+v, want one roulette record", db.records)
	}

	// A second spin has no stored round left to act on.
	if _, err := service.SpinRoulette(testUser, testGuild); !errors.Is(err, games.ErrNoBetsPlaced) {
		t.Fatalf("second spin: err = %v, want ErrNoBetsPlaced", err)
	}
}

func TestBigWinAnnouncement(t *testing.T) {
	db := newFakeDatabase()
	if err := db.CreatePlayer(&models.Player{
		UserID: testUser, GuildID: testGuild, Name: "alice",
		Money: decimal.RequireFromString("1000"),
	}); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	announcer := &recordingAnnouncer{}
	// Threshold of one makes any winning spin announce.
	service := NewGameService(db, nil, announcer, decimal.NewFromInt(1), rand.New(rand.NewSource(2)))

	// Cover the whole wheel so the spin always pays.
	for number := 0; number <= 36; number++ {
		if _, err := service.PlaceInsideBet(testUser, testGuild, number, decimal.NewFromInt(1)); err != nil {
			t.Fatalf("bet on %d: %v", number, err)
		}
	}
	snapshot, err := service.SpinRoulette(testUser, testGuild)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if !snapshot.Payout.Equal(decimal.NewFromInt(36)) {
		t.Fatalf("payout = %s, want 36", snapshot.Payout)
	}
	if len(announcer.names) != 1 || announcer.names[0] != "alice" {
		t.Fatalf("announcements = %v, want one for alice", announcer.names)
	}
	if !announcer.payouts[0].Equal(decimal.NewFromInt(36)) {
		t.Fatalf("announced payout = %s, want 36", announcer.payouts[0])
	}
}

func TestAnnouncementBelowThresholdSuppressed(t *testing.T) {
	service, _, announcer := newTestService(t, 2, "1000")

	for number := 0; number <= 36; number++ {
		if _, err := service.PlaceInsideBet(testUser, testGuild, number, decimal.NewFromInt(1)); err != nil {
			t.Fatalf("bet on %d: %v", number, err)
		}
	}
	if _, err := service.SpinRoulette(testUser, testGuild); err != nil {
		t.Fatalf("spin: %v", err)
	}
	// The 36 payout sits below the 1000 threshold.
	if len(announcer.names) != 0 {
		t.Fatalf("announcements = %v, want none", announcer.names)
	}
}
