// services/game_service.go
package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/games"
	"github.com/chipstack/casinobot/games/blackjack"
	"github.com/chipstack/casinobot/games/roulette"
	"github.com/chipstack/casinobot/models"
	"github.com/chipstack/casinobot/monitor"
	"github.com/chipstack/casinobot/persistence"
)

// Blackjack action tokens accepted by BlackjackAction.
const (
	ActionStart      = "start"
	ActionHit        = "hit"
	ActionStand      = "stand"
	ActionDoubleDown = "double"
)

var (
	// ErrNoActiveGame is returned when an action needs a running game and
	// none is stored.
	ErrNoActiveGame = errors.New("no active game")

	// ErrInvalidAmount is returned for zero or negative bet amounts.
	ErrInvalidAmount = errors.New("bet amount must be positive")

	// ErrUnknownAction is returned for action tokens outside the fixed set.
	ErrUnknownAction = errors.New("unknown action")
)

// Announcer pushes noteworthy events to every connected client.
type Announcer interface {
	AnnounceWin(playerName, gameType string, payout decimal.Decimal)
}

// GameService runs the per-action game cycle: rehydrate the engine from its
// stored state, apply exactly one action, then re-persist the state or, if
// the game ended, discard it and settle the ledger. Each action runs inside
// one database transaction so a failure leaves nothing half-applied.
type GameService struct {
	db                persistence.Database
	metrics           *monitor.Monitor
	announcer         Announcer
	announceThreshold decimal.Decimal

	// rng feeds shuffles and wheel spins; guarded because engines draw
	// from it multiple times per action.
	rng *rand.Rand
	mu  sync.Mutex
}

func NewGameService(db persistence.Database, metrics *monitor.Monitor, announcer Announcer,
	announceThreshold decimal.Decimal, rng *rand.Rand) *GameService {
	return &GameService{
		db:                db,
		metrics:           metrics,
		announcer:         announcer,
		announceThreshold: announceThreshold,
		rng:               rng,
	}
}

// BlackjackSnapshot is the caller-facing view of a blackjack game. The
// dealer's hole card stays masked until the game has ended.
type BlackjackSnapshot struct {
	PlayerCards   []string        `json:"player_cards"`
	PlayerValue   int             `json:"player_value"`
	DealerCards   []string        `json:"dealer_cards"`
	DealerValue   int             `json:"dealer_value,omitempty"`
	Wager         decimal.Decimal `json:"wager"`
	Payout        decimal.Decimal `json:"payout"`
	Ended         bool            `json:"ended"`
	CanDoubleDown bool            `json:"can_double_down"`
	Outcome       string          `json:"outcome,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
}

// RouletteHit mirrors one winning bet in a resolved round.
type RouletteHit struct {
	Bet    string          `json:"bet"`
	Payout decimal.Decimal `json:"payout"`
}

// RouletteSnapshot is the caller-facing view of a roulette round.
type RouletteSnapshot struct {
	OutsideBets   map[string]decimal.Decimal `json:"outside_bets"`
	InsideBets    map[string]decimal.Decimal `json:"inside_bets"`
	Wagered       decimal.Decimal            `json:"wagered"`
	Resolved      bool                       `json:"resolved"`
	WinningNumber *int                       `json:"winning_number,omitempty"`
	Payout        decimal.Decimal            `json:"payout"`
	Hits          []RouletteHit              `json:"hits,omitempty"`
	Balance       decimal.Decimal            `json:"balance"`
}

// pendingAnnounce is a win announcement collected inside the transaction
// and fired only after a successful commit.
type pendingAnnounce struct {
	playerName string
	gameType   string
	payout     decimal.Decimal
}

// BlackjackAction applies one blackjack action for the player. Starting
// while a game is already stored replays its snapshot instead of opening a
// second game; the stored wager is untouched.
func (s *GameService) BlackjackAction(userID, guildID int64, action string, amount decimal.Decimal) (*BlackjackSnapshot, error) {
	var (
		snapshot *BlackjackSnapshot
		announce *pendingAnnounce
	)

	err := s.db.Transaction(func(tx persistence.Database) error {
		if _, err := requirePlayer(tx, userID, guildID); err != nil {
			return err
		}

		stored, err := loadActiveGame(tx, userID, guildID, games.TypeBlackjack)
		if err != nil {
			return err
		}

		var game *blackjack.Game
		switch action {
		case ActionStart:
			if stored != nil {
				if game, err = blackjack.Deserialize(stored.State); err != nil {
					return err
				}
				break
			}
			if !amount.IsPositive() {
				return ErrInvalidAmount
			}
			if err := tx.AdjustPlayerMoney(userID, guildID, amount.Neg()); err != nil {
				return err
			}
			s.mu.Lock()
			game, err = blackjack.New(amount, s.rng)
			s.mu.Unlock()
			if err != nil {
				return err
			}
			if err := s.persistGame(tx, userID, guildID, game); err != nil {
				return err
			}
			s.metrics.GameStarted(games.TypeBlackjack, amount)

		case ActionHit, ActionStand, ActionDoubleDown:
			if stored == nil {
				return ErrNoActiveGame
			}
			if game, err = blackjack.Deserialize(stored.State); err != nil {
				return err
			}

			switch action {
			case ActionHit:
				err = game.Hit()
			case ActionStand:
				err = game.Stand()
			case ActionDoubleDown:
				// Charge the second stake up front; if the engine
				// rejects the double-down the transaction rolls the
				// charge back.
				raise := game.Wager()
				if err := tx.AdjustPlayerMoney(userID, guildID, raise.Neg()); err != nil {
					return err
				}
				if err = game.DoubleDown(); err == nil {
					s.metrics.WagerRaised(games.TypeBlackjack, raise)
				}
			}
			if err != nil {
				return err
			}

			if game.Ended() {
				announce, err = s.settleBlackjack(tx, userID, guildID, game)
				if err != nil {
					return err
				}
			} else if err := s.persistGame(tx, userID, guildID, game); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: %q", ErrUnknownAction, action)
		}

		balance, err := currentBalance(tx, userID, guildID)
		if err != nil {
			return err
		}
		snapshot = blackjackSnapshot(game, balance)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fire(announce)
	return snapshot, nil
}

// PlaceOutsideBet adds to the player's running outside bet, opening a fresh
// round when none is stored.
func (s *GameService) PlaceOutsideBet(userID, guildID int64, bet string, amount decimal.Decimal) (*RouletteSnapshot, error) {
	return s.placeBet(userID, guildID, amount, func(game *roulette.Game) error {
		return game.AddOutsideBet(roulette.OutsideBet(bet), amount)
	})
}

// PlaceInsideBet adds to the player's running straight-up bet on a number.
func (s *GameService) PlaceInsideBet(userID, guildID int64, number int, amount decimal.Decimal) (*RouletteSnapshot, error) {
	return s.placeBet(userID, guildID, amount, func(game *roulette.Game) error {
		return game.AddInsideBet(number, amount)
	})
}

func (s *GameService) placeBet(userID, guildID int64, amount decimal.Decimal, place func(*roulette.Game) error) (*RouletteSnapshot, error) {
	var snapshot *RouletteSnapshot

	err := s.db.Transaction(func(tx persistence.Database) error {
		if _, err := requirePlayer(tx, userID, guildID); err != nil {
			return err
		}
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}

		stored, err := loadActiveGame(tx, userID, guildID, games.TypeRoulette)
		if err != nil {
			return err
		}

		var game *roulette.Game
		if stored == nil {
			game = roulette.New()
		} else if game, err = roulette.Deserialize(stored.State); err != nil {
			return err
		}

		if err := place(game); err != nil {
			return err
		}
		if err := tx.AdjustPlayerMoney(userID, guildID, amount.Neg()); err != nil {
			return err
		}
		if err := s.persistGame(tx, userID, guildID, game); err != nil {
			return err
		}
		s.metrics.WagerRaised(games.TypeRoulette, amount)

		balance, err := currentBalance(tx, userID, guildID)
		if err != nil {
			return err
		}
		snapshot = rouletteSnapshot(game, balance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// SpinRoulette resolves the player's bet book against one drawn number and
// discards the round.
func (s *GameService) SpinRoulette(userID, guildID int64) (*RouletteSnapshot, error) {
	var (
		snapshot *RouletteSnapshot
		announce *pendingAnnounce
	)

	err := s.db.Transaction(func(tx persistence.Database) error {
		player, err := requirePlayer(tx, userID, guildID)
		if err != nil {
			return err
		}

		stored, err := loadActiveGame(tx, userID, guildID, games.TypeRoulette)
		if err != nil {
			return err
		}
		if stored == nil {
			return games.ErrNoBetsPlaced
		}

		game, err := roulette.Deserialize(stored.State)
		if err != nil {
			return err
		}

		s.mu.Lock()
		err = game.Spin(s.rng)
		s.mu.Unlock()
		if err != nil {
			return err
		}

		payout := game.Payout()
		if payout.IsPositive() {
			if err := tx.AdjustPlayerMoney(userID, guildID, payout); err != nil {
				return err
			}
		}
		if err := tx.DeleteActiveGame(userID, guildID, games.TypeRoulette); err != nil {
			return err
		}

		outcome := games.OutcomeLose
		if payout.IsPositive() {
			outcome = games.OutcomeWin
		}
		if err := tx.SaveGameRecord(&models.GameRecord{
			UserID:   userID,
			GuildID:  guildID,
			GameType: games.TypeRoulette,
			Wagered:  game.Wagered(),
			Payout:   payout,
			Outcome:  outcome,
		}); err != nil {
			return err
		}
		s.metrics.GameSettled(games.TypeRoulette, outcome, payout)
		announce = s.bigWin(player.Name, games.TypeRoulette, payout)

		balance, err := currentBalance(tx, userID, guildID)
		if err != nil {
			return err
		}
		snapshot = rouletteSnapshot(game, balance)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fire(announce)
	return snapshot, nil
}

// settleBlackjack finishes an ended game: credits the payout, drops the
// stored state and appends the history record.
func (s *GameService) settleBlackjack(tx persistence.Database, userID, guildID int64, game *blackjack.Game) (*pendingAnnounce, error) {
	payout := game.Payout()
	if payout.IsPositive() {
		if err := tx.AdjustPlayerMoney(userID, guildID, payout); err != nil {
			return nil, err
		}
	}
	if err := tx.DeleteActiveGame(userID, guildID, games.TypeBlackjack); err != nil {
		return nil, err
	}

	outcome := game.Outcome()
	if err := tx.SaveGameRecord(&models.GameRecord{
		UserID:   userID,
		GuildID:  guildID,
		GameType: games.TypeBlackjack,
		Wagered:  game.Wager(),
		Payout:   payout,
		Outcome:  outcome,
	}); err != nil {
		return nil, err
	}
	s.metrics.GameSettled(games.TypeBlackjack, outcome, payout)

	player, err := tx.GetPlayer(userID, guildID)
	if err != nil {
		return nil, err
	}
	return s.bigWin(player.Name, games.TypeBlackjack, payout), nil
}

func (s *GameService) persistGame(tx persistence.Database, userID, guildID int64, game games.Game) error {
	blob, err := game.Serialize()
	if err != nil {
		return err
	}
	return tx.SaveActiveGame(&models.ActiveGame{
		UserID:   userID,
		GuildID:  guildID,
		GameType: game.Type(),
		State:    blob,
	})
}

// bigWin builds an announcement for payouts at or above the configured
// threshold.
func (s *GameService) bigWin(playerName, gameType string, payout decimal.Decimal) *pendingAnnounce {
	if s.announcer == nil || !payout.IsPositive() || payout.LessThan(s.announceThreshold) {
		return nil
	}
	return &pendingAnnounce{playerName: playerName, gameType: gameType, payout: payout}
}

func (s *GameService) fire(announce *pendingAnnounce) {
	if announce == nil {
		return
	}
	s.announcer.AnnounceWin(announce.playerName, announce.gameType, announce.payout)
}

func requirePlayer(tx persistence.Database, userID, guildID int64) (*models.Player, error) {
	player, err := tx.GetPlayer(userID, guildID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrNoAccount
	}
	return player, err
}

func loadActiveGame(tx persistence.Database, userID, guildID int64, gameType string) (*models.ActiveGame, error) {
	stored, err := tx.GetActiveGame(userID, guildID, gameType)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, nil
	}
	return stored, err
}

func currentBalance(tx persistence.Database, userID, guildID int64) (decimal.Decimal, error) {
	player, err := tx.GetPlayer(userID, guildID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return player.Money, nil
}

func blackjackSnapshot(game *blackjack.Game, balance decimal.Decimal) *BlackjackSnapshot {
	snapshot := &BlackjackSnapshot{
		PlayerValue:   game.PlayerHand().Value(),
		Wager:         game.Wager(),
		Payout:        game.Payout(),
		Ended:         game.Ended(),
		CanDoubleDown: game.CanDoubleDown(),
		Outcome:       game.Outcome(),
		Balance:       balance,
	}
	for _, card := range game.PlayerHand() {
		snapshot.PlayerCards = append(snapshot.PlayerCards, card.String())
	}
	if game.Ended() {
		for _, card := range game.DealerHand() {
			snapshot.DealerCards = append(snapshot.DealerCards, card.String())
		}
		snapshot.DealerValue = game.DealerHand().Value()
	} else {
		// Only the upcard is visible while the game is in play.
		snapshot.DealerCards = []string{game.DealerUpcard().String(), "??"}
	}
	return snapshot
}

func rouletteSnapshot(game *roulette.Game, balance decimal.Decimal) *RouletteSnapshot {
	snapshot := &RouletteSnapshot{
		OutsideBets: make(map[string]decimal.Decimal),
		InsideBets:  make(map[string]decimal.Decimal),
		Wagered:     game.Wagered(),
		Resolved:    game.Ended(),
		Payout:      game.Payout(),
		Balance:     balance,
	}
	for _, bet := range roulette.OutsideBets() {
		if amount := game.OutsideAmount(bet); !amount.IsZero() {
			snapshot.OutsideBets[string(bet)] = amount
		}
	}
	for number := 0; number <= 36; number++ {
		if amount := game.InsideAmount(number); !amount.IsZero() {
			snapshot.InsideBets[strconv.Itoa(number)] = amount
		}
	}
	if winning, resolved := game.WinningNumber(); resolved {
		snapshot.WinningNumber = &winning
	}
	for _, hit := range game.Hits() {
		snapshot.Hits = append(snapshot.Hits, RouletteHit{Bet: hit.Bet, Payout: hit.Payout})
	}
	return snapshot
}
