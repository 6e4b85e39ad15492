package integrations

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/anoskuns/Ignite-History/internal/app"
	"github.com/anoskuns/Ignite-History/internal/game"
	"github.com/anoskuns/Ignite-History/internal/models"
	"github.com/anoskuns/Ignite-History/internal/pkg/logger"
	"github.com/anoskuns/Ignite-History/internal/service"
	"github.com/anoskuns/Ignite-History/internal/storage"
	"github.com/anoskuns/Ignite-History/internal/watch"
)

// IntegrationTestSuite drives the full HTTP surface against a real router,
// applier and store. Each test uses its own room code so tests stay
// independent of each other.
type IntegrationTestSuite struct {
	suite.Suite
	server *httptest.Server
	client *http.Client
	db     *storage.Memory
}

func (s *IntegrationTestSuite) SetupSuite() {
	l, err := logger.CreateLogger("info")
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	s.db = storage.NewMemory()

	watcher := watch.NewWatcher(s.db, 50*time.Millisecond, l)
	appInstance := app.NewApp(s.db, watcher, l)
	serviceInstance := service.NewService(appInstance, "localhost:8080", l)

	s.server = httptest.NewServer(serviceInstance.NewRouter())
	s.client = s.server.Client()
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.server.Close()
	s.db.Close()
}

func (s *IntegrationTestSuite) login(room, name string, role models.Role) models.LoginResponse {
	reqBody, err := json.Marshal(models.LoginRequest{Room: room, Name: name, Role: role})
	s.Require().NoError(err, "Error marshaling login request")

	resp, err := s.client.Post(s.server.URL+"/api/login", "application/json", bytes.NewBuffer(reqBody))
	s.Require().NoError(err, "Error sending login request")
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for login")

	var loginResp models.LoginResponse
	err = json.NewDecoder(resp.Body).Decode(&loginResp)
	resp.Body.Close()
	s.Require().NoError(err, "Error decoding login response")
	s.Require().NotEmpty(loginResp.Token, "Token should not be empty")
	return loginResp
}

func (s *IntegrationTestSuite) do(method, path, token string, payload interface{}) (*http.Response, []byte) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		s.Require().NoError(err, "Error marshaling request payload")
	}

	req, err := http.NewRequest(method, s.server.URL+path, bytes.NewBuffer(body))
	s.Require().NoError(err, "Error creating request")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	s.Require().NoError(err, "Error executing request")
	defer resp.Body.Close()

	var respBody bytes.Buffer
	_, err = respBody.ReadFrom(resp.Body)
	s.Require().NoError(err, "Error reading response body")
	return resp, respBody.Bytes()
}

func (s *IntegrationTestSuite) state(token string) *models.GameState {
	resp, body := s.do("GET", "/api/state", token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for state")

	var state models.GameState
	s.Require().NoError(json.Unmarshal(body, &state), "Error decoding state")
	return &state
}

func (s *IntegrationTestSuite) submit(token string, typ models.RequestType, targetID string) *models.Request {
	resp, body := s.do("POST", "/api/request", token, models.SubmitRequest{Type: typ, TargetID: targetID})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for request submission")

	var submitResp models.SubmitResponse
	s.Require().NoError(json.Unmarshal(body, &submitResp), "Error decoding submit response")
	s.Require().NotNil(submitResp.Request)
	return submitResp.Request
}

func (s *IntegrationTestSuite) resolve(token, requestID, action string) *models.Request {
	resp, body := s.do("POST", "/api/request/"+requestID+"/"+action, token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for request resolution")

	var resolveResp models.ResolveResponse
	s.Require().NoError(json.Unmarshal(body, &resolveResp), "Error decoding resolve response")
	s.Require().NotNil(resolveResp.Request)
	return resolveResp.Request
}

func (s *IntegrationTestSuite) TestAcquireLifecycle() {
	arbiter := s.login("game1", "Bank", models.RoleArbiter)
	player := s.login("game1", "Alice", models.RolePlayer)

	s.Require().Len(player.State.Properties, len(game.Catalog()))
	s.Require().Equal(game.InitialBalance, player.State.Players[player.PlayerID].Balance)

	request := s.submit(player.Token, models.RequestAcquire, "p1")
	s.Require().Equal(models.StatusPending, request.Status)
	s.Require().Equal(40, request.Amount)

	// The player may not resolve their own request.
	resp, _ := s.do("POST", "/api/request/"+request.ID+"/approve", player.Token, nil)
	s.Require().Equal(http.StatusForbidden, resp.StatusCode, "Expected status 403 for non-arbiter resolution")

	resolved := s.resolve(arbiter.Token, request.ID, "approve")
	s.Require().Equal(models.StatusApproved, resolved.Status)

	state := s.state(player.Token)
	s.Require().Equal(160, state.Players[player.PlayerID].Balance)
	s.Require().Equal(1, state.Players[player.PlayerID].PropertiesCount)
	s.Require().Equal(player.PlayerID, state.Properties["p1"].OwnerID)
	s.Require().Equal(1, state.Properties["p1"].Level)
}

func (s *IntegrationTestSuite) TestDoubleSale() {
	arbiter := s.login("game2", "Bank", models.RoleArbiter)
	alice := s.login("game2", "Alice", models.RolePlayer)
	bob := s.login("game2", "Bob", models.RolePlayer)

	aliceRequest := s.submit(alice.Token, models.RequestAcquire, "p2")
	bobRequest := s.submit(bob.Token, models.RequestAcquire, "p2")

	first := s.resolve(arbiter.Token, aliceRequest.ID, "approve")
	second := s.resolve(arbiter.Token, bobRequest.ID, "approve")

	s.Require().Equal(models.StatusApproved, first.Status)
	s.Require().Equal(models.StatusRejected, second.Status, "second sale of the same property must be rejected")

	state := s.state(arbiter.Token)
	s.Require().Equal(alice.PlayerID, state.Properties["p2"].OwnerID)
	s.Require().Equal(game.InitialBalance, state.Players[bob.PlayerID].Balance, "rejected buyer must not be charged")
}

func (s *IntegrationTestSuite) TestArbiterActions() {
	arbiter := s.login("game3", "Bank", models.RoleArbiter)
	player := s.login("game3", "Alice", models.RolePlayer)

	resp, _ := s.do("POST", "/api/player/"+player.PlayerID+"/balance", arbiter.Token, models.AdjustBalanceRequest{Amount: -100})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for balance adjustment")

	resp, body := s.do("POST", "/api/player/"+player.PlayerID+"/tax", arbiter.Token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for tax")

	var taxResp models.TaxResponse
	s.Require().NoError(json.Unmarshal(body, &taxResp), "Error decoding tax response")
	s.Require().Equal(15, taxResp.Amount, "Tax should be 15% of the authoritative balance, rounded down")

	state := s.state(player.Token)
	s.Require().Equal(85, state.Players[player.PlayerID].Balance)
}

func (s *IntegrationTestSuite) TestEndAndReset() {
	arbiter := s.login("game4", "Bank", models.RoleArbiter)
	player := s.login("game4", "Alice", models.RolePlayer)

	request := s.submit(player.Token, models.RequestAcquire, "p3")
	s.resolve(arbiter.Token, request.ID, "approve")

	resp, _ := s.do("POST", "/api/end", arbiter.Token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for ending the game")

	resp, _ = s.do("POST", "/api/request", player.Token, models.SubmitRequest{Type: models.RequestSalary})
	s.Require().Equal(http.StatusConflict, resp.StatusCode, "Expected status 409 for a request in an ended room")

	resp, _ = s.do("POST", "/api/reset", arbiter.Token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "Expected status 200 for reset")

	state := s.state(player.Token)
	s.Require().Equal(models.RoomActive, state.Status)
	s.Require().Equal(game.InitialBalance, state.Players[player.PlayerID].Balance)
	s.Require().Equal(0, state.Players[player.PlayerID].PropertiesCount)
	s.Require().Empty(state.Requests)
	s.Require().Empty(state.Properties["p3"].OwnerID)
}

func (s *IntegrationTestSuite) TestRejoinKeepsIdentity() {
	first := s.login("game5", "Alice", models.RolePlayer)
	second := s.login("game5", "Alice", models.RolePlayer)

	s.Require().Equal(first.PlayerID, second.PlayerID, "Logging in again under the same name must resume the same player")
	s.Require().Len(second.State.Players, 1)
}

func (s *IntegrationTestSuite) TestWebsocketPush() {
	arbiter := s.login("game6", "Bank", models.RoleArbiter)
	player := s.login("game6", "Alice", models.RolePlayer)

	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/ws?token=" + player.Token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err, "Error dialing websocket")
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	readState := func() *models.GameState {
		s.Require().NoError(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
		var state models.GameState
		s.Require().NoError(conn.ReadJSON(&state), "Error reading websocket snapshot")
		return &state
	}

	initial := readState()
	s.Require().Equal("GAME6", initial.RoomID)
	s.Require().Contains(initial.Players, player.PlayerID)

	httpResp, _ := s.do("POST", "/api/player/"+player.PlayerID+"/balance", arbiter.Token, models.AdjustBalanceRequest{Amount: 300})
	s.Require().Equal(http.StatusOK, httpResp.StatusCode, "Expected status 200 for balance adjustment")

	// The commit must be pushed to the open connection without polling
	// from the client side.
	for {
		state := readState()
		if state.Players[player.PlayerID].Balance == game.InitialBalance+300 {
			break
		}
	}
}

func TestIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
