package inform

import (
	"fmt"
	"testing"
	"time"

	"github.com/airenas/async-api/pkg/inform"
	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/docbuddy/internal/pkg/messages"
	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/test"
	"github.com/airenas/docbuddy/internal/pkg/test/mocks"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

var (
	dbMock     *mocks.DB
	senderMock *mockEmailSender
	makerMock  *mockEmailMaker
	srvData    *ServiceData
)

const lockID = "s1/documents/u1/Jonas_1.html"

func initTest(t *testing.T) {
	t.Helper()
	dbMock = &mocks.DB{}
	senderMock = &mockEmailSender{}
	makerMock = &mockEmailMaker{}
	srvData = &ServiceData{DB: dbMock, GueClient: &gue.Client{}, WorkerCount: 10, EmailSender: senderMock,
		EmailMaker: makerMock, Location: nil, testMode: true}
	dbMock.On("LoadSession", mock.Anything, "u1", "s1").Return(&persistence.Session{ID: "s1", UserID: "u1",
		NotifyEmail: utils.ToSQLStr("o@o.lt"), DocumentKey: "documents/u1/Jonas_1.html",
		DocumentURL: "http://blob/doc.html"}, nil)
	dbMock.On("LockEmailTable", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	dbMock.On("UnLockEmailTable", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	senderMock.On("Send", mock.Anything).Return(nil)
	makerMock.On("Make", mock.Anything).Return(&email.Email{From: "o@o.lt", Text: []byte("text")}, nil)
}

func newMsg() *messages.DocumentMessage {
	return messages.NewDocumentMessage("s1", "u1", amessages.InformTypeFinished,
		time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC))
}

func Test_handleInform(t *testing.T) {
	initTest(t)
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.Nil(t, err)
	require.Equal(t, 3, len(dbMock.Calls))
	assert.Equal(t, lockID, dbMock.Calls[1].Arguments[1])
	assert.Equal(t, amessages.InformTypeFinished, dbMock.Calls[1].Arguments[2])
	assert.Equal(t, lockID, dbMock.Calls[2].Arguments[1])
	assert.Equal(t, 2, dbMock.Calls[2].Arguments[3])
	md := makerMock.Calls[0].Arguments[0].(*inform.Data)
	assert.Equal(t, "http://blob/doc.html", md.ID)
	assert.Equal(t, "o@o.lt", md.Email)
	assert.Equal(t, amessages.InformTypeFinished, md.MsgType)
}

func Test_handleInform_Location(t *testing.T) {
	initTest(t)
	loc := time.FixedZone("EET", 2*3600)
	srvData.Location = loc
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	require.Nil(t, err)
	md := makerMock.Calls[0].Arguments[0].(*inform.Data)
	assert.Equal(t, loc, md.MsgTime.Location())
}

func Test_handleInform_NoEmail(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadSession", mock.Anything, "u1", "s1").Return(&persistence.Session{ID: "s1"}, nil)
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(dbMock.Calls))
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_FailDB(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadSession", mock.Anything, "u1", "s1").Return(nil, fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.NotNil(t, err)
}

func Test_handleInform_NotFound(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadSession", mock.Anything, "u1", "s1").Return(nil, fmt.Errorf("session s1: %w", utils.ErrNotFound))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func Test_handleInform_FailMaker(t *testing.T) {
	initTest(t)
	makerMock.ExpectedCalls = nil
	makerMock.On("Make", mock.Anything).Return(nil, fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.NotNil(t, err)
	assert.Equal(t, 1, len(dbMock.Calls))
}

func Test_handleInform_FailLock(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadSession", mock.Anything, "u1", "s1").Return(&persistence.Session{ID: "s1",
		NotifyEmail: utils.ToSQLStr("o@o.lt")}, nil)
	dbMock.On("LockEmailTable", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("locked: %w", utils.ErrConflict))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.ErrorIs(t, err, utils.ErrConflict)
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_FailSender(t *testing.T) {
	initTest(t)
	senderMock.ExpectedCalls = nil
	senderMock.On("Send", mock.Anything).Return(fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.NotNil(t, err)
	require.Equal(t, 3, len(dbMock.Calls))
	assert.Equal(t, amessages.InformTypeFinished, dbMock.Calls[2].Arguments[2])
	assert.Equal(t, 0, dbMock.Calls[2].Arguments[3])
}

func Test_validate(t *testing.T) {
	initTest(t)
	type args struct {
		data *ServiceData
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: &ServiceData{DB: dbMock, GueClient: &gue.Client{}, WorkerCount: 10, EmailSender: senderMock,
			EmailMaker: makerMock}}, wantErr: false},
		{name: "Fail no DB", args: args{data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 10, EmailSender: senderMock,
			EmailMaker: makerMock}}, wantErr: true},
		{name: "Fail no gue", args: args{data: &ServiceData{DB: dbMock, WorkerCount: 10, EmailSender: senderMock,
			EmailMaker: makerMock}}, wantErr: true},
		{name: "Fail no workers", args: args{data: &ServiceData{DB: dbMock, GueClient: &gue.Client{}, EmailSender: senderMock,
			EmailMaker: makerMock}}, wantErr: true},
		{name: "Fail no sender", args: args{data: &ServiceData{DB: dbMock, GueClient: &gue.Client{}, WorkerCount: 10,
			EmailMaker: makerMock}}, wantErr: true},
		{name: "Fail no maker", args: args{data: &ServiceData{DB: dbMock, GueClient: &gue.Client{}, WorkerCount: 10, EmailSender: senderMock}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockEmailSender struct{ mock.Mock }

func (m *mockEmailSender) Send(email *email.Email) error {
	args := m.Called(email)
	return args.Error(0)
}

type mockEmailMaker struct{ mock.Mock }

func (m *mockEmailMaker) Make(data *inform.Data) (*email.Email, error) {
	args := m.Called(data)
	return mocks.To[*email.Email](args.Get(0)), args.Error(1)
}
