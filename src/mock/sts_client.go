package mock

import (
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"sync"
)

// STSClient implements github.com/michaelfecher/cross-account-access/src/iam.STSClient.
type STSClient struct {
	AssumableRoles map[string]*types.Credentials
	Err            error
	Inputs         []*sts.AssumeRoleInput
	mutex          sync.Mutex
}

// NewSTSClient returns a mock STSClient.
func NewSTSClient() *STSClient {
	return &STSClient{
		AssumableRoles: make(map[string]*types.Credentials),
	}
}

// AssumeRole uses the mock's AssumableRoles to try to assume a new IAM role.
// When Err is set it is returned instead.
func (mock *STSClient) AssumeRole(ctx context.Context, input *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()

	if input == nil {
		return nil, errors.New("No AssumeRoleInput given")
	} else if input.RoleArn == nil {
		return nil, errors.New("No RoleArn given")
	}
	mock.Inputs = append(mock.Inputs, input)
	if mock.Err != nil {
		return nil, mock.Err
	}
	credential, hasKey := mock.AssumableRoles[*input.RoleArn]
	if !hasKey {
		return nil, fmt.Errorf("Cannot assume role: %s", *input.RoleArn)
	}
	return &sts.AssumeRoleOutput{Credentials: credential}, nil
}

// SetCredentials replaces the credentials returned for a role.
func (mock *STSClient) SetCredentials(arn string, creds *types.Credentials) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	mock.AssumableRoles[arn] = creds
}

// SetError makes every subsequent call fail with err, or succeed again when
// err is nil.
func (mock *STSClient) SetError(err error) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	mock.Err = err
}

// Calls returns how many times AssumeRole was invoked.
func (mock *STSClient) Calls() int {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	return len(mock.Inputs)
}
